/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/datastore/mock"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

func newTestManager(cache bool, store *mock.DataStore[*TestPlayer], opts ...ManagerOption) *Manager[*TestPlayer] {
	m := NewManager[*TestPlayer](append([]ManagerOption{WithCache(cache)}, opts...)...)
	m.SetDriver(store)
	return m
}

func names(players []*TestPlayer) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}

func TestManagerWithoutDriver(t *testing.T) {
	ctx := context.Background()
	m := NewManager[*TestPlayer](WithCache(true))

	if m.Cache() == nil {
		t.Fatal("Cache must exist independently of the driver")
	}
	if m.Class() != "TestPlayer" {
		t.Fatalf("Expected class TestPlayer, got %s", m.Class())
	}

	checks := map[string]error{}
	_, _, checks["Load"] = m.Load(ctx, 1)
	_, _, checks["LoadPartial"] = m.LoadPartial(ctx, 1)
	_, checks["LoadAll"] = m.LoadAll(ctx)
	_, checks["LoadKeys"] = m.LoadKeys(ctx, []int64{1})
	_, checks["LoadKeysPartial"] = m.LoadKeysPartial(ctx, []int64{1})
	_, checks["Refresh"] = m.Refresh(ctx, []int64{1})
	_, checks["LoadRelation"] = m.LoadRelation(ctx, "friends", 1)
	_, checks["LoadObjectSet"] = m.LoadObjectSet(ctx, "all")
	checks["Create"] = m.Create(ctx, &TestPlayer{ID: 1})
	checks["Update"] = m.Update(ctx, &TestPlayer{ID: 1})
	checks["Delete"] = m.Delete(ctx, 1)

	for op, err := range checks {
		if !stderrors.Is(err, errors.ErrNoDriver) {
			t.Errorf("%s: expected ErrNoDriver, got %v", op, err)
		}
	}

	_, _, err := m.BuildProxy(1).Resolve(ctx)
	if !stderrors.Is(err, errors.ErrNoDriver) {
		t.Errorf("Proxy resolve: expected ErrNoDriver, got %v", err)
	}
}

func TestManagerCreateThenLoad(t *testing.T) {
	ctx := context.Background()
	for _, cache := range []bool{false, true} {
		m := newTestManager(cache, mock.New[*TestPlayer]())

		want := &TestPlayer{ID: 7, Name: "Grace"}
		if err := m.Create(ctx, want); err != nil {
			t.Fatalf("cache=%v: Create failed: %v", cache, err)
		}
		got, ok, err := m.Load(ctx, 7)
		if err != nil || !ok {
			t.Fatalf("cache=%v: Load failed: %v, %v", cache, ok, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("cache=%v: expected %+v, got %+v", cache, want, got)
		}
	}
}

func TestManagerDeleteEvicts(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1, Name: "Alice"})
	m := newTestManager(true, store)

	if _, ok, _ := m.Load(ctx, 1); !ok {
		t.Fatal("Expected key 1 to load")
	}
	if err := m.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, err := m.Load(ctx, 1); ok || err != nil {
		t.Fatalf("Expected absent after delete, got %v, %v", ok, err)
	}

	// Deleting a key that was never cached still reaches the driver.
	if err := m.Delete(ctx, 99); err != nil {
		t.Fatalf("Delete of uncached key failed: %v", err)
	}
	if store.WriteCalls() != 2 {
		t.Fatalf("Expected 2 driver deletes, got %d", store.WriteCalls())
	}
}

func TestManagerLoadUsesCache(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1, Name: "Alice"})
	m := newTestManager(true, store, WithObserver(obs))

	for i := 0; i < 3; i++ {
		if _, ok, err := m.Load(ctx, 1); !ok || err != nil {
			t.Fatalf("Load failed: %v, %v", ok, err)
		}
	}
	if store.GetCalls() != 1 {
		t.Fatalf("Expected 1 driver fetch, got %d", store.GetCalls())
	}
	if m.LoadRequests() != 1 {
		t.Fatalf("Expected 1 load request, got %d", m.LoadRequests())
	}
	if hits := obs.keys(EventCacheHit); len(hits) != 2 {
		t.Fatalf("Expected 2 cache hits, got %v", hits)
	}

	// Absent keys are not cached, so every load reaches the driver.
	m.Load(ctx, 2)
	m.Load(ctx, 2)
	if store.GetCalls() != 3 {
		t.Fatalf("Expected 3 driver fetches, got %d", store.GetCalls())
	}
}

func TestManagerWithoutCacheAlwaysFetches(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1})
	m := newTestManager(false, store)

	m.Load(ctx, 1)
	m.Load(ctx, 1)
	if store.GetCalls() != 2 {
		t.Fatalf("Expected 2 driver fetches, got %d", store.GetCalls())
	}
}

func TestManagerEnableCache(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1})
	m := newTestManager(true, store)

	m.Load(ctx, 1)
	m.EnableCache(false)
	if m.Cache() != nil {
		t.Fatal("Expected cache to be discarded")
	}
	m.EnableCache(true)
	if m.Cache().Len() != 0 {
		t.Fatal("Expected a fresh empty cache")
	}
	m.Load(ctx, 1)
	if store.GetCalls() != 2 {
		t.Fatalf("Expected reload after cache reset, got %d fetches", store.GetCalls())
	}
}

func TestManagerLoadKeys(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	store := mock.New[*TestPlayer]().WithEntities(
		&TestPlayer{ID: 1, Name: "a"},
		&TestPlayer{ID: 3, Name: "c"},
	)
	m := newTestManager(true, store, WithObserver(obs))

	got, err := m.LoadKeys(ctx, []int64{3, 1, 2})
	if err != nil {
		t.Fatalf("LoadKeys failed: %v", err)
	}
	if !reflect.DeepEqual(names(got), []string{"c", "a"}) {
		t.Fatalf("Expected [c a], got %v", names(got))
	}
	if misses := obs.keys(EventBatchMiss); !reflect.DeepEqual(misses, []int64{2}) {
		t.Fatalf("Expected miss for key 2, got %v", misses)
	}
	if m.Cache().Len() != 2 {
		t.Fatalf("Expected 2 cached entries, got %d", m.Cache().Len())
	}
}

func TestManagerLoadKeysPartial(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().
		WithEntities(&TestPlayer{ID: 1, Name: "a", Matches: []int64{9}}).
		WithPartialFunc(func(p *TestPlayer) *TestPlayer { return &TestPlayer{ID: p.ID, Name: p.Name} })
	m := newTestManager(true, store)

	got, err := m.LoadKeysPartial(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("LoadKeysPartial failed: %v", err)
	}
	if len(got) != 1 || got[0].Matches != nil {
		t.Fatalf("Expected one partial entity, got %+v", got)
	}
	if m.Cache().Len() != 0 {
		t.Fatal("Partial loads must not populate the cache")
	}

	p, ok, err := m.LoadPartial(ctx, 1)
	if err != nil || !ok || p.Matches != nil {
		t.Fatalf("LoadPartial failed: %+v, %v, %v", p, ok, err)
	}
	if m.Cache().Len() != 0 || store.GetCalls() != 0 {
		t.Fatal("LoadPartial must bypass the cache and the full fetch path")
	}
}

func TestManagerLoadRelation(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().
		WithEntities(&TestPlayer{ID: 5, Name: "five", Matches: []int64{1}}).
		WithRelation("friends", 1, 5, 6).
		WithPartialFunc(func(p *TestPlayer) *TestPlayer { return &TestPlayer{ID: p.ID, Name: p.Name} })
	m := newTestManager(true, store)

	got, err := m.LoadRelation(ctx, "friends", 1)
	if err != nil {
		t.Fatalf("LoadRelation failed: %v", err)
	}
	if !reflect.DeepEqual(names(got), []string{"five"}) {
		t.Fatalf("Expected [five], got %v", names(got))
	}

	partial, err := m.LoadRelationPartial(ctx, "friends", 1)
	if err != nil || len(partial) != 1 || partial[0].Matches != nil {
		t.Fatalf("LoadRelationPartial failed: %+v, %v", partial, err)
	}

	none, err := m.LoadRelation(ctx, "rivals", 1)
	if err != nil || len(none) != 0 {
		t.Fatalf("Unknown relation should be empty, got %v, %v", none, err)
	}
}

func TestManagerLoadObjectSet(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().
		WithEntities(&TestPlayer{ID: 1, Name: "a"}, &TestPlayer{ID: 2, Name: "b"}).
		WithSetFunc(func(setID string, params ...any) []int64 {
			if setID == "byName" && len(params) == 1 && params[0] == "b" {
				return []int64{2}
			}
			return nil
		})
	m := newTestManager(false, store)

	got, err := m.LoadObjectSet(ctx, "byName", "b")
	if err != nil || !reflect.DeepEqual(names(got), []string{"b"}) {
		t.Fatalf("LoadObjectSet failed: %v, %v", names(got), err)
	}
	got, err = m.LoadObjectSet(ctx, "unknown")
	if err != nil || len(got) != 0 {
		t.Fatalf("Unknown set should be empty, got %v, %v", got, err)
	}
}

func TestManagerWriteFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("disk full")
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1, Name: "old"})
	m := newTestManager(true, store)
	m.Load(ctx, 1)

	store.WithUpdateError(boom).WithCreateError(boom).WithDeleteError(boom)

	err := m.Update(ctx, &TestPlayer{ID: 1, Name: "new"})
	if !stderrors.Is(err, boom) || !errors.IsBackendFailure(err) {
		t.Fatalf("Expected wrapped backend failure, got %v", err)
	}
	if p, _ := m.Cache().Get(1); p.Name != "old" {
		t.Fatalf("Failed update must not change the cache, got %s", p.Name)
	}

	if err := m.Create(ctx, &TestPlayer{ID: 2}); err == nil {
		t.Fatal("Expected create failure")
	}
	if _, ok := m.Cache().Get(2); ok {
		t.Fatal("Failed create must not populate the cache")
	}

	if err := m.Delete(ctx, 1); err == nil {
		t.Fatal("Expected delete failure")
	}
	if _, ok := m.Cache().Get(1); !ok {
		t.Fatal("Failed delete must not evict")
	}
}

func TestManagerLoadFailure(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("connection reset")
	store := mock.New[*TestPlayer]().WithGetError(boom)
	m := newTestManager(true, store)

	_, _, err := m.Load(ctx, 1)
	if !errors.IsBackendFailure(err) || !stderrors.Is(err, boom) {
		t.Fatalf("Expected backend failure, got %v", err)
	}
	if _, err := m.LoadKeys(ctx, []int64{1, 2}); !errors.IsBackendFailure(err) {
		t.Fatalf("Expected LoadKeys to propagate the failure, got %v", err)
	}

	malformed := errors.NewMalformedStorageError("players.xml", stderrors.New("bad token"))
	store.WithGetError(malformed)
	_, _, err = m.Load(ctx, 1)
	if !errors.IsMalformedStorage(err) {
		t.Fatalf("Expected malformed storage to pass through, got %v", err)
	}
}

func TestManagerUpdateIdempotent(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1, Name: "old"})
	m := newTestManager(true, store)

	p := &TestPlayer{ID: 1, Name: "new"}
	m.Update(ctx, p)
	first, cached := store.GetData(), m.Cache().GetAll()
	m.Update(ctx, p)

	if !reflect.DeepEqual(first, store.GetData()) || !reflect.DeepEqual(cached, m.Cache().GetAll()) {
		t.Fatal("Second identical update changed state")
	}
}

func TestManagerLoadAllReconciles(t *testing.T) {
	ctx := context.Background()
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1}, &TestPlayer{ID: 2})

	m := newTestManager(true, store)
	if _, err := m.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	store.Remove(2)
	all, err := m.LoadAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("LoadAll failed: %v, %v", all, err)
	}
	if _, ok := m.Cache().Get(2); ok {
		t.Fatal("Reconciling reload should drop key 2")
	}

	additive := newTestManager(true, mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1}), WithAdditiveReload())
	additive.Cache().Put(&TestPlayer{ID: 9})
	additive.LoadAll(ctx)
	if additive.Cache().Len() != 2 {
		t.Fatalf("Additive reload should keep stale entries, got %d", additive.Cache().Len())
	}
}

func TestManagerRefresh(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	store := mock.New[*TestPlayer]().WithEntities(&TestPlayer{ID: 1, Name: "a"}, &TestPlayer{ID: 2, Name: "b"})
	m := newTestManager(true, store, WithObserver(obs))

	m.LoadKeys(ctx, []int64{1, 2})
	store.Remove(2)
	store.WithEntities(&TestPlayer{ID: 1, Name: "a2"})

	got, err := m.Refresh(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !reflect.DeepEqual(names(got), []string{"a2"}) {
		t.Fatalf("Expected [a2], got %v", names(got))
	}
	if p, _ := m.Cache().Get(1); p.Name != "a2" {
		t.Fatalf("Refresh should overwrite key 1, got %s", p.Name)
	}
	if _, ok := m.Cache().Get(2); ok {
		t.Fatal("Refresh should evict key 2")
	}
	if misses := obs.keys(EventBatchMiss); !reflect.DeepEqual(misses, []int64{2}) {
		t.Fatalf("Expected refresh miss for key 2, got %v", misses)
	}
	if m.LoadRequests() != 4 {
		t.Fatalf("Expected 4 load requests, got %d", m.LoadRequests())
	}
}

// slowReader blocks every fetch until release is closed.
type slowReader struct {
	calls   atomic.Int64
	release chan struct{}
}

func (r *slowReader) GetByPrimaryKey(ctx context.Context, key int64) (*TestPlayer, bool, error) {
	r.calls.Add(1)
	<-r.release
	return &TestPlayer{ID: key}, true, nil
}

func (r *slowReader) GetAll(ctx context.Context) ([]*TestPlayer, error) {
	return nil, nil
}

func TestManagerLoadCollapsing(t *testing.T) {
	ctx := context.Background()
	reader := &slowReader{release: make(chan struct{})}
	m := NewManager[*TestPlayer](WithLoadCollapsing())
	m.SetDriver(datastore.WithDefaults[*TestPlayer](reader))

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p, ok, err := m.Load(ctx, 4); err != nil || !ok || p.ID != 4 {
				t.Errorf("Load failed: %v, %v, %v", p, ok, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(reader.release)
	wg.Wait()

	if calls := reader.calls.Load(); calls >= n {
		t.Fatalf("Expected collapsed fetches, got %d for %d loads", calls, n)
	}
	if m.LoadRequests() != reader.calls.Load() {
		t.Fatalf("Load requests %d should match fetches %d", m.LoadRequests(), reader.calls.Load())
	}
}

func TestManagerDefaultsForMinimalReader(t *testing.T) {
	ctx := context.Background()
	reader := &slowReader{release: make(chan struct{})}
	close(reader.release)
	m := NewManager[*TestPlayer](WithCache(true))
	m.SetDriver(datastore.WithDefaults[*TestPlayer](reader))

	if err := m.Create(ctx, &TestPlayer{ID: 3}); err != nil {
		t.Fatalf("Default create should be a no-op, got %v", err)
	}
	got, err := m.LoadRelation(ctx, "friends", 1)
	if err != nil || len(got) != 0 {
		t.Fatalf("Default relation should be empty, got %v, %v", got, err)
	}
	refreshed, err := m.Refresh(ctx, []int64{1, 2})
	if err != nil || !reflect.DeepEqual(storagemodels.PrimaryKeys(refreshed), []int64{1, 2}) {
		t.Fatalf("Default batch should resolve keys one by one, got %v, %v", refreshed, err)
	}
}
