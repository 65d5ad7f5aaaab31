/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metric_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/datastore/mock"
	"github.com/suparena/objectstore/metric"
)

type Item struct {
	ID int64
}

func (i *Item) PrimaryKey() int64 { return i.ID }

func TestObserverCountsManagerEvents(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	obs, err := metric.NewObserver(reg)
	require.NoError(t, err)

	src := objectstore.NewSource(objectstore.WithManagerDefaults(objectstore.WithObserver(obs)))
	store := mock.New[*Item]().WithEntities(&Item{ID: 1}, &Item{ID: 2})
	_, err = objectstore.Attach[*Item](src, store, objectstore.WithCache(true))
	require.NoError(t, err)

	got, err := objectstore.LoadKeys[*Item](ctx, src, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	_, _, err = objectstore.Load[*Item](ctx, src, 1)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	value := func(name string) float64 {
		mf, ok := byName[name]
		require.True(t, ok, "metric %s not gathered", name)
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		require.Equal(t, "class", m.GetLabel()[0].GetName())
		assert.Equal(t, "Item", m.GetLabel()[0].GetValue())
		return m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(3), value("objectstore_load_requests_total"))
	assert.Equal(t, float64(1), value("objectstore_batch_misses_total"))
	assert.Equal(t, float64(1), value("objectstore_cache_hits_total"))
}

func TestObserverDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metric.NewObserver(reg)
	require.NoError(t, err)

	_, err = metric.NewObserver(reg)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := metric.NewObserver(reg)
	require.NoError(t, err)
	obs.OnEvent(context.Background(), objectstore.Event{Type: objectstore.EventCacheHit, Class: "Player"})

	n, err := testutil.GatherAndCount(reg, "objectstore_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec := httptest.NewRecorder()
	metric.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `objectstore_cache_hits_total{class="Player"} 1`)
}
