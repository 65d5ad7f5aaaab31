/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	"fmt"

	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

// Loader resolves a primary key to an entity. *Manager[E] is a Loader.
type Loader[E storagemodels.Identifiable] interface {
	Load(ctx context.Context, key int64) (E, bool, error)
}

// Proxy is a lazy reference: a primary key plus the loader that resolves it.
// Proxies are immutable, comparable values; two proxies are equal when they
// carry the same key and the same loader. The resolved entity is never
// memoized in the proxy.
type Proxy[E storagemodels.Identifiable] struct {
	key    int64
	loader Loader[E]
}

// NewProxy builds a proxy for key resolved through loader.
func NewProxy[E storagemodels.Identifiable](key int64, loader Loader[E]) Proxy[E] {
	return Proxy[E]{key: key, loader: loader}
}

// Key returns the referenced primary key.
func (p Proxy[E]) Key() int64 {
	return p.key
}

// Resolve loads the referenced entity. Each call goes through the loader again.
func (p Proxy[E]) Resolve(ctx context.Context) (E, bool, error) {
	if p.loader == nil {
		var zero E
		return zero, false, errors.ErrNoDriver
	}
	return p.loader.Load(ctx, p.key)
}

// IsZero reports whether p was built without a loader.
func (p Proxy[E]) IsZero() bool {
	return p.loader == nil
}

func (p Proxy[E]) String() string {
	return fmt.Sprintf("proxy(%d)", p.key)
}

// ProxyKeys returns the keys referenced by proxies, preserving order.
func ProxyKeys[E storagemodels.Identifiable](proxies []Proxy[E]) []int64 {
	keys := make([]int64, 0, len(proxies))
	for _, p := range proxies {
		keys = append(keys, p.key)
	}
	return keys
}
