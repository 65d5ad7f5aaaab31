/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/objectstore/storagemodels"
)

// NopConnector is a driver with no backend. Reads resolve nothing and writes
// do nothing. It is a safe placeholder until a real backend is attached.
type NopConnector[E storagemodels.Identifiable] struct{}

var _ Connector[storagemodels.Identifiable] = NopConnector[storagemodels.Identifiable]{}

func (NopConnector[E]) GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	var zero E
	return zero, false, nil
}

func (NopConnector[E]) GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	var zero E
	return zero, false, nil
}

func (NopConnector[E]) GetAll(ctx context.Context) ([]E, error) {
	return []E{}, nil
}

func (NopConnector[E]) GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error) {
	for _, key := range keys {
		ReportMiss(ctx, key)
	}
	return []E{}, nil
}

func (NopConnector[E]) GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error) {
	return []int64{}, nil
}

func (NopConnector[E]) GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error) {
	return []int64{}, nil
}

func (NopConnector[E]) Create(ctx context.Context, entity E) error { return nil }

func (NopConnector[E]) Update(ctx context.Context, entity E) error { return nil }

func (NopConnector[E]) Delete(ctx context.Context, key int64) error { return nil }
