/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	"log/slog"
	"time"
)

// EventType identifies a diagnostic event emitted by managers.
type EventType string

const (
	// EventLoadRequest is emitted for every driver-level fetch made by Load.
	EventLoadRequest EventType = "objects.load.request"
	// EventBatchMiss is emitted for every key dropped from a batch result.
	EventBatchMiss EventType = "objects.batch.miss"
	// EventCacheHit is emitted when Load is served from the cache.
	EventCacheHit EventType = "objects.cache.hit"
)

// Event is a diagnostic event. It is consumed by operational tooling and never
// drives program logic.
type Event struct {
	Type      EventType
	Class     string
	Key       int64
	Timestamp time.Time
	Data      map[string]any
}

// Observer receives diagnostic events from managers.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) OnEvent(context.Context, Event) {}

// MultiObserver fans an event out to several observers, in order.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(ctx, event)
		}
	}
}

// SlogObserver writes events to a slog.Logger. Batch misses are logged at
// warn level; everything else at debug.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver that emits to the given logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := slog.LevelDebug
	if event.Type == EventBatchMiss {
		level = slog.LevelWarn
	}
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(event.Data)+2)
	attrs = append(attrs, slog.String("class", event.Class), slog.Int64("key", event.Key))
	for k, v := range event.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
