/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metric

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suparena/objectstore"
)

const namespace = "objectstore"

// Observer is an objectstore.Observer counting events per class.
type Observer struct {
	loadRequests *prometheus.CounterVec
	batchMisses  *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
}

var _ objectstore.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		loadRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_requests_total",
			Help:      "Total number of driver-level entity fetches",
		}, []string{"class"}),

		batchMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_misses_total",
			Help:      "Total number of keys dropped from batch results",
		}, []string{"class"}),

		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of loads served from the cache",
		}, []string{"class"}),
	}

	for _, c := range []prometheus.Collector{o.loadRequests, o.batchMisses, o.cacheHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) OnEvent(_ context.Context, event objectstore.Event) {
	switch event.Type {
	case objectstore.EventLoadRequest:
		o.loadRequests.WithLabelValues(event.Class).Inc()
	case objectstore.EventBatchMiss:
		o.batchMisses.WithLabelValues(event.Class).Inc()
	case objectstore.EventCacheHit:
		o.cacheHits.WithLabelValues(event.Class).Inc()
	}
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
