/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"io"

	"github.com/suparena/objectstore/storagemodels"
)

// WithDefaults completes a Reader into a Connector. Capabilities the reader
// implements are used as-is; the rest fall back to the default contract:
//   - partial loads fall back to full loads
//   - batch loads resolve keys one by one, reporting misses
//   - relations and sets resolve to empty sequences
//   - writes are no-ops
//
// Start and Close are forwarded when the reader implements Starter or io.Closer.
func WithDefaults[E storagemodels.Identifiable](r Reader[E]) Connector[E] {
	if c, ok := r.(Connector[E]); ok {
		return c
	}
	return &defaulted[E]{Reader: r}
}

type defaulted[E storagemodels.Identifiable] struct {
	Reader[E]
}

func (d *defaulted[E]) GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	if p, ok := d.Reader.(PartialReader[E]); ok {
		return p.GetPartialByPrimaryKey(ctx, key)
	}
	return d.GetByPrimaryKey(ctx, key)
}

func (d *defaulted[E]) GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error) {
	if b, ok := d.Reader.(BatchReader[E]); ok {
		return b.GetByPrimaryKeys(ctx, keys)
	}
	return GetEach(ctx, d.Reader, keys)
}

func (d *defaulted[E]) GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error) {
	if r, ok := d.Reader.(RelationResolver); ok {
		return r.GetRelatedIDs(ctx, relation, key)
	}
	return []int64{}, nil
}

func (d *defaulted[E]) GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error) {
	if s, ok := d.Reader.(SetResolver); ok {
		return s.GetIDsForSet(ctx, setID, params...)
	}
	return []int64{}, nil
}

func (d *defaulted[E]) Create(ctx context.Context, entity E) error {
	if w, ok := d.Reader.(Writer[E]); ok {
		return w.Create(ctx, entity)
	}
	return nil
}

func (d *defaulted[E]) Update(ctx context.Context, entity E) error {
	if w, ok := d.Reader.(Writer[E]); ok {
		return w.Update(ctx, entity)
	}
	return nil
}

func (d *defaulted[E]) Delete(ctx context.Context, key int64) error {
	if w, ok := d.Reader.(Writer[E]); ok {
		return w.Delete(ctx, key)
	}
	return nil
}

func (d *defaulted[E]) Start(ctx context.Context) error {
	if s, ok := d.Reader.(Starter); ok {
		return s.Start(ctx)
	}
	return nil
}

func (d *defaulted[E]) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Unwrap returns the reader this connector was built from.
func (d *defaulted[E]) Unwrap() Reader[E] {
	return d.Reader
}

// GetEach resolves keys one at a time through r, preserving input order.
// Unresolved keys are dropped and passed to ReportMiss; the first error aborts.
func GetEach[E storagemodels.Identifiable](ctx context.Context, r Reader[E], keys []int64) ([]E, error) {
	out := make([]E, 0, len(keys))
	for _, key := range keys {
		e, ok, err := r.GetByPrimaryKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			ReportMiss(ctx, key)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
