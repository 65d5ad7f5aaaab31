/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

// Driver stores the entities of one class in one file. Reads decode the whole
// file; writes rewrite it. Partial loads, batches, relations and sets use the
// defaults of datastore.WithDefaults.
type Driver[E storagemodels.Identifiable] struct {
	mu     sync.Mutex
	path   string
	codec  Codec
	mapper Mapper[E]
	logger *slog.Logger
}

var (
	_ datastore.Reader[storagemodels.Identifiable] = (*Driver[storagemodels.Identifiable])(nil)
	_ datastore.Writer[storagemodels.Identifiable] = (*Driver[storagemodels.Identifiable])(nil)
)

// Option configures a Driver.
type Option func(*driverOptions)

type driverOptions struct {
	logger *slog.Logger
}

// WithLogger sets the driver logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(o *driverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDriver creates a driver over the file at path.
func NewDriver[E storagemodels.Identifiable](path string, codec Codec, mapper Mapper[E], opts ...Option) *Driver[E] {
	options := driverOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	return &Driver[E]{
		path:   path,
		codec:  codec,
		mapper: mapper,
		logger: options.logger.With("file", path),
	}
}

// Path returns the storage file.
func (d *Driver[E]) Path() string {
	return d.path
}

// GetAll decodes every entity of the file, in file order.
func (d *Driver[E]) GetAll(ctx context.Context) ([]E, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(ctx)
}

// GetByPrimaryKey scans the file for key.
func (d *Driver[E]) GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	var zero E
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.read(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, e := range all {
		if e.PrimaryKey() == key {
			return e, true, nil
		}
	}
	return zero, false, nil
}

// Create adds entity to the file. An entity with the same key is replaced.
func (d *Driver[E]) Create(ctx context.Context, entity E) error {
	return d.modify(ctx, func(all []E) []E {
		return upsert(all, entity)
	})
}

// Update replaces the entity with the same key, or adds entity if none exists.
func (d *Driver[E]) Update(ctx context.Context, entity E) error {
	return d.modify(ctx, func(all []E) []E {
		return upsert(all, entity)
	})
}

// Delete removes key from the file. Deleting an absent key is not an error.
func (d *Driver[E]) Delete(ctx context.Context, key int64) error {
	return d.modify(ctx, func(all []E) []E {
		return slices.DeleteFunc(all, func(e E) bool { return e.PrimaryKey() == key })
	})
}

// SaveAll replaces the file content with entities, sorted by primary key.
func (d *Driver[E]) SaveAll(ctx context.Context, entities []E) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, entities)
}

func (d *Driver[E]) modify(ctx context.Context, fn func([]E) []E) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.read(ctx)
	if err != nil {
		return err
	}
	return d.write(ctx, fn(all))
}

func (d *Driver[E]) read(ctx context.Context) ([]E, error) {
	records, err := ReadRecords(d.path, d.codec)
	if err != nil {
		return nil, err
	}

	out := make([]E, 0, len(records))
	for i, rec := range records {
		e, ok, err := d.mapper.Decode(rec)
		if err != nil {
			return nil, errors.NewMalformedStorageError(d.path, err)
		}
		if !ok {
			d.logger.WarnContext(ctx, "skipped unreadable object", "index", i, "id", rec.ID, "has_id", rec.HasID)
			continue
		}
		out = append(out, e)
	}
	d.logger.DebugContext(ctx, "read objects file", "count", len(out))
	return out, nil
}

func (d *Driver[E]) write(ctx context.Context, entities []E) error {
	sorted := storagemodels.SortByPrimaryKey(entities)
	records := make([]Record, 0, len(sorted))
	for _, e := range sorted {
		rec, err := d.mapper.Encode(e)
		if err != nil {
			return errors.NewBackendError("encode", d.path, err)
		}
		rec.ID, rec.HasID = e.PrimaryKey(), true
		records = append(records, rec)
	}
	if err := WriteRecords(d.path, d.codec, records); err != nil {
		return err
	}
	d.logger.DebugContext(ctx, "wrote objects file", "count", len(records))
	return nil
}

func upsert[E storagemodels.Identifiable](all []E, entity E) []E {
	key := entity.PrimaryKey()
	for i, e := range all {
		if e.PrimaryKey() == key {
			all[i] = entity
			return all
		}
	}
	return append(all, entity)
}
