/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"log/slog"
	"time"
)

// SetFunc narrows a query to the keys of a named set. The builder passed in
// targets the driver's table.
type SetFunc func(q *QueryBuilder, params ...any) (*QueryBuilder, error)

// StreamProgress tracks streaming progress
type StreamProgress struct {
	ItemsProcessed int64     // Total items processed
	PagesProcessed int       // Total pages processed
	StartTime      time.Time // When streaming started
	CurrentRate    float64   // Items per second
}

type options struct {
	indexMap          IndexMap
	classIndex        GSIConfig
	partialAttributes []string
	sets              map[string]SetFunc
	logger            *slog.Logger

	bufferSize      int
	pageSize        int32
	maxRetries      int
	retryBackoff    time.Duration
	progressHandler func(StreamProgress)
}

// Option is a functional option for configuring a Driver or a stream
type Option func(*options)

func defaultOptions() options {
	return options{
		indexMap:     DefaultIndexMap(),
		classIndex:   DefaultGSIConfigs["GSI1"],
		sets:         make(map[string]SetFunc),
		logger:       slog.Default(),
		bufferSize:   100,
		pageSize:     100,
		maxRetries:   3,
		retryBackoff: time.Second,
	}
}

// WithIndexMap sets the key templates (default: DefaultIndexMap)
func WithIndexMap(m IndexMap) Option {
	return func(o *options) {
		o.indexMap = m
	}
}

// WithClassIndex sets the GSI listing every item of the class (default: GSI1)
func WithClassIndex(cfg GSIConfig) Option {
	return func(o *options) {
		o.classIndex = cfg
	}
}

// WithPartialAttributes sets the attributes read by partial loads. Without it
// partial loads read the whole item.
func WithPartialAttributes(attrs ...string) Option {
	return func(o *options) {
		o.partialAttributes = attrs
	}
}

// WithSet registers a named set
func WithSet(setID string, fn SetFunc) Option {
	return func(o *options) {
		o.sets[setID] = fn
	}
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBufferSize sets the stream channel buffer size (default: 100)
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithPageSize sets the DynamoDB page size (default: 100)
func WithPageSize(size int32) Option {
	return func(o *options) {
		o.pageSize = size
	}
}

// WithMaxRetries sets the retry attempts for throttled requests (default: 3)
func WithMaxRetries(retries int) Option {
	return func(o *options) {
		o.maxRetries = retries
	}
}

// WithRetryBackoff sets the base retry backoff, multiplied by the attempt number (default: 1s)
func WithRetryBackoff(backoff time.Duration) Option {
	return func(o *options) {
		o.retryBackoff = backoff
	}
}

// WithProgressHandler sets a callback invoked after every streamed page
func WithProgressHandler(handler func(StreamProgress)) Option {
	return func(o *options) {
		o.progressHandler = handler
	}
}
