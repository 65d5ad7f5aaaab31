/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Connector for testing
package mock

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/storagemodels"
)

// DataStore is an in-memory driver with call counters and error injection
type DataStore[E storagemodels.Identifiable] struct {
	mu        sync.RWMutex
	data      map[int64]E
	relations map[string]map[int64][]int64
	setFunc   func(setID string, params ...any) []int64
	partialFn func(E) E

	getError    error
	getAllError error
	createError error
	updateError error
	deleteError error

	getCalls     atomic.Int64
	partialCalls atomic.Int64
	getAllCalls  atomic.Int64
	writeCalls   atomic.Int64
}

var _ datastore.Connector[storagemodels.Identifiable] = (*DataStore[storagemodels.Identifiable])(nil)

// New creates a new mock DataStore
func New[E storagemodels.Identifiable]() *DataStore[E] {
	return &DataStore[E]{
		data:      make(map[int64]E),
		relations: make(map[string]map[int64][]int64),
	}
}

// WithEntities seeds the store
func (m *DataStore[E]) WithEntities(entities ...E) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		m.data[e.PrimaryKey()] = e
	}
	return m
}

// WithRelation defines the related keys of root under the named relation
func (m *DataStore[E]) WithRelation(name string, root int64, related ...int64) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.relations[name] == nil {
		m.relations[name] = make(map[int64][]int64)
	}
	m.relations[name][root] = related
	return m
}

// WithSetFunc sets the function resolving named sets
func (m *DataStore[E]) WithSetFunc(f func(setID string, params ...any) []int64) *DataStore[E] {
	m.setFunc = f
	return m
}

// WithPartialFunc sets the function reducing an entity to its partial form
func (m *DataStore[E]) WithPartialFunc(f func(E) E) *DataStore[E] {
	m.partialFn = f
	return m
}

// WithGetError makes key lookups return an error
func (m *DataStore[E]) WithGetError(err error) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getError = err
	return m
}

// WithGetAllError makes GetAll return an error
func (m *DataStore[E]) WithGetAllError(err error) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllError = err
	return m
}

// WithCreateError makes Create operations return an error
func (m *DataStore[E]) WithCreateError(err error) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createError = err
	return m
}

// WithUpdateError makes Update operations return an error
func (m *DataStore[E]) WithUpdateError(err error) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *DataStore[E]) WithDeleteError(err error) *DataStore[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteError = err
	return m
}

// GetByPrimaryKey retrieves an entity by key
func (m *DataStore[E]) GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	m.getCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero E
	if m.getError != nil {
		return zero, false, m.getError
	}
	e, ok := m.data[key]
	return e, ok, nil
}

// GetPartialByPrimaryKey retrieves an entity reduced by the partial function
func (m *DataStore[E]) GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	m.partialCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero E
	if m.getError != nil {
		return zero, false, m.getError
	}
	e, ok := m.data[key]
	if !ok {
		return zero, false, nil
	}
	if m.partialFn != nil {
		e = m.partialFn(e)
	}
	return e, true, nil
}

// GetAll returns every entity, sorted by key
func (m *DataStore[E]) GetAll(ctx context.Context) ([]E, error) {
	m.getAllCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getAllError != nil {
		return nil, m.getAllError
	}
	out := make([]E, 0, len(m.data))
	for _, e := range m.data {
		out = append(out, e)
	}
	return storagemodels.SortByPrimaryKey(out), nil
}

// GetByPrimaryKeys resolves keys one by one, reporting misses
func (m *DataStore[E]) GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error) {
	return datastore.GetEach[E](ctx, m, keys)
}

// GetRelatedIDs returns the keys registered with WithRelation
func (m *DataStore[E]) GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.relations[relation][key]), nil
}

// GetIDsForSet delegates to the set function, if any
func (m *DataStore[E]) GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error) {
	if m.setFunc == nil {
		return []int64{}, nil
	}
	return m.setFunc(setID, params...), nil
}

// Create stores an entity
func (m *DataStore[E]) Create(ctx context.Context, entity E) error {
	m.writeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	m.data[entity.PrimaryKey()] = entity
	return nil
}

// Update overwrites an entity
func (m *DataStore[E]) Update(ctx context.Context, entity E) error {
	m.writeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateError != nil {
		return m.updateError
	}
	m.data[entity.PrimaryKey()] = entity
	return nil
}

// Delete removes an entity by key. Deleting an absent key is not an error.
func (m *DataStore[E]) Delete(ctx context.Context, key int64) error {
	m.writeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.data, key)
	return nil
}

// Helper methods for testing

// SetData directly sets the internal data map, bypassing the write counters
func (m *DataStore[E]) SetData(data map[int64]E) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// GetData returns a copy of the internal data map
func (m *DataStore[E]) GetData() map[int64]E {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[int64]E, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}
	return result
}

// Remove deletes key behind the manager's back, simulating an external delete
func (m *DataStore[E]) Remove(key int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Count returns the number of stored entities
func (m *DataStore[E]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data
func (m *DataStore[E]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[int64]E)
}

// GetCalls returns the number of GetByPrimaryKey calls
func (m *DataStore[E]) GetCalls() int64 { return m.getCalls.Load() }

// PartialCalls returns the number of GetPartialByPrimaryKey calls
func (m *DataStore[E]) PartialCalls() int64 { return m.partialCalls.Load() }

// GetAllCalls returns the number of GetAll calls
func (m *DataStore[E]) GetAllCalls() int64 { return m.getAllCalls.Load() }

// WriteCalls returns the number of Create, Update and Delete calls
func (m *DataStore[E]) WriteCalls() int64 { return m.writeCalls.Load() }

// ResetCalls zeroes every call counter
func (m *DataStore[E]) ResetCalls() {
	m.getCalls.Store(0)
	m.partialCalls.Store(0)
	m.getAllCalls.Store(0)
	m.writeCalls.Store(0)
}
