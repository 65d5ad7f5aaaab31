/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/registry"
	"github.com/suparena/objectstore/storagemodels"
)

// Manager is the single point through which reads and writes of one entity
// class flow. It combines an optional Cache with a driver.
//
// A Manager is unusable until a driver is assigned: every operation returns
// errors.ErrNoDriver. Cache presence is independent of driver presence.
//
// The cache is only mutated after a driver call returned without error, so a
// failed write never leaves the cache disagreeing with the backend.
type Manager[E storagemodels.Identifiable] struct {
	class    string
	observer Observer
	logger   *slog.Logger
	opts     managerOptions

	mu     sync.RWMutex
	cache  *Cache[E]
	driver datastore.Connector[E]

	loads atomic.Int64
	group singleflight.Group
}

// NewManager creates a manager for class E with no driver attached.
func NewManager[E storagemodels.Identifiable](opts ...ManagerOption) *Manager[E] {
	options := defaultManagerOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.className == "" {
		options.className = registry.ClassName[E]()
	}

	m := &Manager[E]{
		class:    options.className,
		observer: options.observer,
		logger:   options.logger.With("class", options.className),
		opts:     options,
	}
	if options.cache {
		m.cache = NewCache[E]()
	}
	return m
}

// Class returns the class name of the managed entities.
func (m *Manager[E]) Class() string {
	return m.class
}

// EnableCache installs a fresh empty cache, or discards the current one.
func (m *Manager[E]) EnableCache(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		m.cache = NewCache[E]()
	} else {
		m.cache = nil
	}
}

// Cache returns the managed cache, or nil when caching is disabled.
func (m *Manager[E]) Cache() *Cache[E] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache
}

// SetDriver assigns the driver used to read and write entities.
func (m *Manager[E]) SetDriver(driver datastore.Connector[E]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = driver
}

// Driver returns the assigned driver, or nil.
func (m *Manager[E]) Driver() datastore.Connector[E] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

// LoadRequests returns the number of driver-level entity fetches.
func (m *Manager[E]) LoadRequests() int64 {
	return m.loads.Load()
}

func (m *Manager[E]) state() (datastore.Connector[E], *Cache[E], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.driver == nil {
		return nil, nil, errors.ErrNoDriver
	}
	return m.driver, m.cache, nil
}

// Load returns the entity with the given key, from the cache when possible.
// A key that does not resolve yields (zero, false, nil).
func (m *Manager[E]) Load(ctx context.Context, key int64) (E, bool, error) {
	var zero E
	driver, cache, err := m.state()
	if err != nil {
		return zero, false, err
	}

	if cache != nil {
		if e, ok := cache.Get(key); ok {
			m.emit(ctx, EventCacheHit, key, nil)
			return e, true, nil
		}
	}

	if !m.opts.collapseLoads {
		return m.fetch(ctx, driver, cache, key)
	}

	type result struct {
		entity E
		found  bool
	}
	v, err, _ := m.group.Do(strconv.FormatInt(key, 10), func() (any, error) {
		e, ok, err := m.fetch(ctx, driver, cache, key)
		return result{entity: e, found: ok}, err
	})
	if err != nil {
		return zero, false, err
	}
	r := v.(result)
	return r.entity, r.found, nil
}

func (m *Manager[E]) fetch(ctx context.Context, driver datastore.Connector[E], cache *Cache[E], key int64) (E, bool, error) {
	var zero E
	m.loads.Add(1)
	m.emit(ctx, EventLoadRequest, key, nil)

	e, ok, err := driver.GetByPrimaryKey(ctx, key)
	if err != nil {
		return zero, false, errors.NewBackendError("load", m.class, err)
	}
	if !ok {
		return zero, false, nil
	}
	if cache != nil {
		cache.Put(e)
	}
	return e, true, nil
}

// LoadPartial loads the primary attributes of an entity. It never reads from
// or writes to the cache.
func (m *Manager[E]) LoadPartial(ctx context.Context, key int64) (E, bool, error) {
	var zero E
	driver, _, err := m.state()
	if err != nil {
		return zero, false, err
	}
	e, ok, err := driver.GetPartialByPrimaryKey(ctx, key)
	if err != nil {
		return zero, false, errors.NewBackendError("loadPartial", m.class, err)
	}
	return e, ok, nil
}

// LoadAll returns every entity of the class from the driver.
//
// When a cache exists it is reconciled with the result: entries for keys the
// backend no longer returns are dropped. WithAdditiveReload keeps them instead.
func (m *Manager[E]) LoadAll(ctx context.Context) ([]E, error) {
	driver, cache, err := m.state()
	if err != nil {
		return nil, err
	}
	all, err := driver.GetAll(ctx)
	if err != nil {
		return nil, errors.NewBackendError("loadAll", m.class, err)
	}
	if cache != nil {
		if m.opts.additiveReload {
			cache.PutAll(all)
		} else {
			cache.Replace(all)
		}
	}
	m.logger.DebugContext(ctx, "loaded all objects", "count", len(all))
	return all, nil
}

// LoadKeys resolves keys through Load, preserving input order. Unresolved keys
// are dropped and reported as batch misses.
func (m *Manager[E]) LoadKeys(ctx context.Context, keys []int64) ([]E, error) {
	if _, _, err := m.state(); err != nil {
		return nil, err
	}

	out := make([]E, 0, len(keys))
	for _, key := range keys {
		e, ok, err := m.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			m.emit(ctx, EventBatchMiss, key, nil)
			continue
		}
		out = append(out, e)
	}

	if cache := m.Cache(); cache != nil {
		cache.PutAll(out)
	}
	return out, nil
}

// LoadKeysPartial resolves keys through the driver's partial path, bypassing
// the cache, preserving input order and dropping misses.
func (m *Manager[E]) LoadKeysPartial(ctx context.Context, keys []int64) ([]E, error) {
	driver, _, err := m.state()
	if err != nil {
		return nil, err
	}

	out := make([]E, 0, len(keys))
	for _, key := range keys {
		e, ok, err := driver.GetPartialByPrimaryKey(ctx, key)
		if err != nil {
			return nil, errors.NewBackendError("loadPartial", m.class, err)
		}
		if !ok {
			m.emit(ctx, EventBatchMiss, key, map[string]any{"partial": true})
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Refresh reloads keys from the driver in one batch, bypassing the cache.
// Resolved entities overwrite their cache entries and unresolved keys are
// evicted, so stale entries for records deleted elsewhere disappear.
func (m *Manager[E]) Refresh(ctx context.Context, keys []int64) ([]E, error) {
	driver, cache, err := m.state()
	if err != nil {
		return nil, err
	}

	m.loads.Add(int64(len(keys)))
	batchCtx := datastore.WithMissReporter(ctx, func(key int64) {
		m.emit(ctx, EventBatchMiss, key, map[string]any{"refresh": true})
	})

	found, err := driver.GetByPrimaryKeys(batchCtx, keys)
	if err != nil {
		return nil, errors.NewBackendError("refresh", m.class, err)
	}
	if cache != nil {
		resolved := storagemodels.IndexByPrimaryKey(found)
		for _, key := range keys {
			if _, ok := resolved[key]; !ok {
				cache.Remove(key)
			}
		}
		cache.PutAll(found)
	}
	return found, nil
}

// LoadRelation loads the entities related to key through the named relation.
func (m *Manager[E]) LoadRelation(ctx context.Context, relation string, key int64) ([]E, error) {
	ids, err := m.relatedIDs(ctx, relation, key)
	if err != nil {
		return nil, err
	}
	return m.LoadKeys(ctx, ids)
}

// LoadRelationPartial is LoadRelation with partially loaded entities.
func (m *Manager[E]) LoadRelationPartial(ctx context.Context, relation string, key int64) ([]E, error) {
	ids, err := m.relatedIDs(ctx, relation, key)
	if err != nil {
		return nil, err
	}
	return m.LoadKeysPartial(ctx, ids)
}

func (m *Manager[E]) relatedIDs(ctx context.Context, relation string, key int64) ([]int64, error) {
	driver, _, err := m.state()
	if err != nil {
		return nil, err
	}
	ids, err := driver.GetRelatedIDs(ctx, relation, key)
	if err != nil {
		return nil, errors.NewBackendError("relation "+relation, m.class, err)
	}
	return ids, nil
}

// LoadObjectSet loads the entities of the named parameterized set.
func (m *Manager[E]) LoadObjectSet(ctx context.Context, setID string, params ...any) ([]E, error) {
	driver, _, err := m.state()
	if err != nil {
		return nil, err
	}
	ids, err := driver.GetIDsForSet(ctx, setID, params...)
	if err != nil {
		return nil, errors.NewBackendError("set "+setID, m.class, err)
	}
	return m.LoadKeys(ctx, ids)
}

// Create writes entity through the driver, then caches it.
func (m *Manager[E]) Create(ctx context.Context, entity E) error {
	driver, cache, err := m.state()
	if err != nil {
		return err
	}
	if err := driver.Create(ctx, entity); err != nil {
		return errors.NewBackendError("create", m.class, err)
	}
	if cache != nil {
		cache.Put(entity)
	}
	return nil
}

// Update writes entity through the driver, then overwrites its cache entry.
func (m *Manager[E]) Update(ctx context.Context, entity E) error {
	driver, cache, err := m.state()
	if err != nil {
		return err
	}
	if err := driver.Update(ctx, entity); err != nil {
		return errors.NewBackendError("update", m.class, err)
	}
	if cache != nil {
		cache.Put(entity)
	}
	return nil
}

// Delete removes key through the driver, then evicts it from the cache.
func (m *Manager[E]) Delete(ctx context.Context, key int64) error {
	driver, cache, err := m.state()
	if err != nil {
		return err
	}
	if err := driver.Delete(ctx, key); err != nil {
		return errors.NewBackendError("delete", m.class, err)
	}
	if cache != nil {
		cache.Remove(key)
	}
	return nil
}

// BuildProxy returns a lazy reference to key. Neither cache nor driver is touched.
func (m *Manager[E]) BuildProxy(key int64) Proxy[E] {
	return NewProxy[E](key, m)
}

func (m *Manager[E]) emit(ctx context.Context, typ EventType, key int64, data map[string]any) {
	m.observer.OnEvent(ctx, Event{
		Type:      typ,
		Class:     m.class,
		Key:       key,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Lifecycle hooks used by Source.

func (m *Manager[E]) className() string { return m.class }

func (m *Manager[E]) loadRequests() int64 { return m.LoadRequests() }

func (m *Manager[E]) start(ctx context.Context) error {
	driver := m.Driver()
	if driver == nil {
		return nil
	}
	if s, ok := driver.(datastore.Starter); ok {
		if err := s.Start(ctx); err != nil {
			return errors.NewConfigurationError(m.class, "start driver", err)
		}
	}
	if m.opts.preload {
		if m.Cache() == nil {
			m.logger.DebugContext(ctx, "preload skipped, cache disabled")
			return nil
		}
		all, err := m.LoadAll(ctx)
		if err != nil {
			return err
		}
		m.logger.InfoContext(ctx, "preloaded objects", "count", len(all))
	}
	return nil
}

func (m *Manager[E]) close() error {
	driver := m.Driver()
	if c, ok := driver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
