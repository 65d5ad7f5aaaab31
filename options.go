/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"log/slog"
)

// managerOptions configures a Manager
type managerOptions struct {
	className      string
	cache          bool
	observer       Observer
	logger         *slog.Logger
	collapseLoads  bool
	preload        bool
	additiveReload bool
}

// ManagerOption is a functional option for configuring a Manager
type ManagerOption func(*managerOptions)

func defaultManagerOptions() managerOptions {
	return managerOptions{
		observer: NopObserver{},
		logger:   slog.Default(),
	}
}

// WithClassName overrides the class name derived from the registry
func WithClassName(name string) ManagerOption {
	return func(o *managerOptions) {
		o.className = name
	}
}

// WithCache enables or disables the read cache (default: disabled)
func WithCache(enabled bool) ManagerOption {
	return func(o *managerOptions) {
		o.cache = enabled
	}
}

// WithObserver sets the diagnostics observer (default: NopObserver)
func WithObserver(observer Observer) ManagerOption {
	return func(o *managerOptions) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLoadCollapsing makes concurrent cache-missing loads of the same key share
// one driver fetch.
func WithLoadCollapsing() ManagerOption {
	return func(o *managerOptions) {
		o.collapseLoads = true
	}
}

// WithPreload makes Source.Start load every entity of the class into the
// cache. It has no effect while the cache is disabled.
func WithPreload() ManagerOption {
	return func(o *managerOptions) {
		o.preload = true
	}
}

// WithAdditiveReload makes LoadAll add its results to the cache instead of
// replacing the cache content. Entries deleted elsewhere then stay cached until
// removed explicitly.
func WithAdditiveReload() ManagerOption {
	return func(o *managerOptions) {
		o.additiveReload = true
	}
}

// sourceOptions configures a Source
type sourceOptions struct {
	logger      *slog.Logger
	managerOpts []ManagerOption
}

// SourceOption is a functional option for configuring a Source
type SourceOption func(*sourceOptions)

// WithSourceLogger sets the logger used by the source and, unless overridden,
// by its managers.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(o *sourceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithManagerDefaults sets options applied to every manager registered on the
// source, before the per-class options.
func WithManagerDefaults(opts ...ManagerOption) SourceOption {
	return func(o *sourceOptions) {
		o.managerOpts = append(o.managerOpts, opts...)
	}
}
