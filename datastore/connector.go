/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/objectstore/storagemodels"
)

// Reader is the minimum a backend must provide to be attached to a source.
// A key that does not resolve is reported as (zero, false, nil).
type Reader[E storagemodels.Identifiable] interface {
	GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error)

	GetAll(ctx context.Context) ([]E, error)
}

// Connector is the full persistence contract for one entity class.
// A type implementing it is a driver.
type Connector[E storagemodels.Identifiable] interface {
	Reader[E]

	// GetPartialByPrimaryKey loads only the primary attributes of an entity,
	// omitting nested or aggregated data.
	GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error)

	// GetByPrimaryKeys returns the entities for the keys that resolved, in input
	// order. Each unresolved key is passed to ReportMiss.
	GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error)

	// GetRelatedIDs resolves a named one-to-many relation from a root key.
	// Unknown relation names yield an empty sequence.
	GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error)

	// GetIDsForSet resolves a named parameterized set. Unknown set identifiers
	// yield an empty sequence.
	GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error)

	Create(ctx context.Context, entity E) error

	Update(ctx context.Context, entity E) error

	Delete(ctx context.Context, key int64) error
}

// Optional capabilities checked by WithDefaults.

type PartialReader[E storagemodels.Identifiable] interface {
	GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error)
}

type BatchReader[E storagemodels.Identifiable] interface {
	GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error)
}

type RelationResolver interface {
	GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error)
}

type SetResolver interface {
	GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error)
}

type Writer[E storagemodels.Identifiable] interface {
	Create(ctx context.Context, entity E) error
	Update(ctx context.Context, entity E) error
	Delete(ctx context.Context, key int64) error
}

// Starter is implemented by drivers that acquire resources at source start,
// such as opening a database connection.
type Starter interface {
	Start(ctx context.Context) error
}

type missReporterKey struct{}

// MissReporter receives the keys a batch lookup could not resolve.
type MissReporter func(key int64)

// WithMissReporter returns a context carrying fn as the miss reporter.
func WithMissReporter(ctx context.Context, fn MissReporter) context.Context {
	return context.WithValue(ctx, missReporterKey{}, fn)
}

// ReportMiss forwards key to the reporter carried by ctx, if any.
func ReportMiss(ctx context.Context, key int64) {
	if fn, ok := ctx.Value(missReporterKey{}).(MissReporter); ok && fn != nil {
		fn(key)
	}
}
