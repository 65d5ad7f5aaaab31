/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

// maxBatchKeys bounds the bound variables of one batch query, well under
// SQLite's per-statement limit.
const maxBatchKeys = 500

// Driver stores one entity class in one table of a DB.
type Driver[E storagemodels.Identifiable] struct {
	db    *DB
	table Table[E]

	mu     sync.RWMutex
	source *objectstore.Source
}

var (
	_ datastore.Connector[storagemodels.Identifiable] = (*Driver[storagemodels.Identifiable])(nil)
	_ datastore.Starter                               = (*Driver[storagemodels.Identifiable])(nil)
	_ objectstore.SourceAware                         = (*Driver[storagemodels.Identifiable])(nil)
)

// NewDriver creates a driver for table on db.
func NewDriver[E storagemodels.Identifiable](db *DB, table Table[E]) (*Driver[E], error) {
	if db == nil {
		return nil, errors.NewConfigurationError("db", "database is required", nil)
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return &Driver[E]{db: db, table: table}, nil
}

// Attach creates a driver for table, registers class E on src with it and
// ties the database lifecycle to the source.
func Attach[E storagemodels.Identifiable](src *objectstore.Source, db *DB, table Table[E], opts ...objectstore.ManagerOption) (*objectstore.Manager[E], *Driver[E], error) {
	driver, err := NewDriver(db, table)
	if err != nil {
		return nil, nil, err
	}
	m, err := objectstore.Attach[E](src, driver, opts...)
	if err != nil {
		return nil, nil, err
	}
	db.bind(src)
	return m, driver, nil
}

// Start opens the shared database.
func (d *Driver[E]) Start(ctx context.Context) error {
	return d.db.Start(ctx)
}

// SetSource records the source the driver is attached to; Hydrate uses it.
func (d *Driver[E]) SetSource(src *objectstore.Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = src
}

// Source returns the source the driver is attached to, or nil.
func (d *Driver[E]) Source() *objectstore.Source {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source
}

// GetByPrimaryKey loads a full entity.
func (d *Driver[E]) GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	var zero E
	e, ok, err := d.getOne(ctx, d.table.Columns, d.table.Scan, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	if err := d.hydrate(ctx, e); err != nil {
		return zero, false, err
	}
	return e, true, nil
}

// GetPartialByPrimaryKey loads the partial columns only, without hydration.
func (d *Driver[E]) GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	if d.table.ScanPartial == nil {
		var zero E
		e, ok, err := d.getOne(ctx, d.table.Columns, d.table.Scan, key)
		if err != nil || !ok {
			return zero, ok, err
		}
		return e, true, nil
	}
	return d.getOne(ctx, d.table.PartialColumns, d.table.ScanPartial, key)
}

func (d *Driver[E]) getOne(ctx context.Context, columns []string, scan func(Scanner) (E, error), key int64) (E, bool, error) {
	var zero E
	sqlDB, err := d.db.SQL()
	if err != nil {
		return zero, false, err
	}

	query := d.table.selectSQL(columns) + " WHERE " + d.table.key() + " = ?"
	e, err := scan(sqlDB.QueryRowContext(ctx, query, key))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, errors.NewBackendError("get", d.table.Name, err)
	}
	return e, true, nil
}

// GetAll loads every entity, ordered by key.
func (d *Driver[E]) GetAll(ctx context.Context) ([]E, error) {
	query := d.table.selectSQL(d.table.Columns) + " ORDER BY " + d.table.key()
	all, err := d.queryEntities(ctx, "getAll", query)
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if err := d.hydrate(ctx, e); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// GetByPrimaryKeys loads keys with IN queries of at most maxBatchKeys keys.
// Results follow input order; keys without a row are reported as misses.
func (d *Driver[E]) GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error) {
	if len(keys) == 0 {
		return []E{}, nil
	}

	unique := make([]int64, 0, len(keys))
	seen := make(map[int64]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	byKey := make(map[int64]E, len(unique))
	for chunk := range slices.Chunk(unique, maxBatchKeys) {
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		query := fmt.Sprintf("%s WHERE %s IN (%s)", d.table.selectSQL(d.table.Columns), d.table.key(), placeholders(len(chunk)))
		rows, err := d.queryEntities(ctx, "getBatch", query, args...)
		if err != nil {
			return nil, err
		}
		maps.Copy(byKey, storagemodels.IndexByPrimaryKey(rows))
	}
	out := make([]E, 0, len(keys))
	for _, key := range keys {
		e, ok := byKey[key]
		if !ok {
			datastore.ReportMiss(ctx, key)
			continue
		}
		if err := d.hydrate(ctx, e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GetRelatedIDs runs the query of the named relation.
func (d *Driver[E]) GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error) {
	query, ok := d.table.Relations[relation]
	if !ok {
		return []int64{}, nil
	}
	return d.queryIDs(ctx, "relation "+relation, query, key)
}

// GetIDsForSet runs the query of the named set with params.
func (d *Driver[E]) GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error) {
	query, ok := d.table.Sets[setID]
	if !ok {
		return []int64{}, nil
	}
	return d.queryIDs(ctx, "set "+setID, query, params...)
}

// Create inserts entity. A duplicate key is reported as a validation error.
func (d *Driver[E]) Create(ctx context.Context, entity E) error {
	sqlDB, err := d.db.SQL()
	if err != nil {
		return err
	}
	if _, err := sqlDB.ExecContext(ctx, d.table.insertSQL(), d.table.Values(entity)...); err != nil {
		if isUniqueViolation(err) {
			return errors.NewValidationError(d.table.key(), fmt.Sprintf("%s %d already exists", d.table.Name, entity.PrimaryKey()))
		}
		return errors.NewBackendError("create", d.table.Name, err)
	}
	return nil
}

// Update rewrites every column of the row of entity. Updating a missing row
// yields a not-found error.
func (d *Driver[E]) Update(ctx context.Context, entity E) error {
	sqlDB, err := d.db.SQL()
	if err != nil {
		return err
	}

	query, keyIdx := d.table.updateSQL()
	values := d.table.Values(entity)
	args := make([]any, 0, len(values))
	for i, v := range values {
		if i != keyIdx {
			args = append(args, v)
		}
	}
	args = append(args, entity.PrimaryKey())

	res, err := sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewBackendError("update", d.table.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError(d.table.Name, entity.PrimaryKey())
	}
	return nil
}

// Delete removes the row of key. Deleting a missing row is not an error.
func (d *Driver[E]) Delete(ctx context.Context, key int64) error {
	sqlDB, err := d.db.SQL()
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.table.Name, d.table.key())
	if _, err := sqlDB.ExecContext(ctx, query, key); err != nil {
		return errors.NewBackendError("delete", d.table.Name, err)
	}
	return nil
}

func (d *Driver[E]) queryEntities(ctx context.Context, op, query string, args ...any) ([]E, error) {
	sqlDB, err := d.db.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewBackendError(op, d.table.Name, err)
	}
	defer rows.Close()

	var out []E
	for rows.Next() {
		e, err := d.table.Scan(rows)
		if err != nil {
			return nil, errors.NewBackendError(op, d.table.Name, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendError(op, d.table.Name, err)
	}
	return out, nil
}

func (d *Driver[E]) queryIDs(ctx context.Context, op, query string, args ...any) ([]int64, error) {
	sqlDB, err := d.db.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewBackendError(op, d.table.Name, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewBackendError(op, d.table.Name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendError(op, d.table.Name, err)
	}
	return ids, nil
}

func (d *Driver[E]) hydrate(ctx context.Context, e E) error {
	if d.table.Hydrate == nil {
		return nil
	}
	if err := d.table.Hydrate(ctx, d.Source(), e); err != nil {
		return errors.NewBackendError("hydrate", d.table.Name, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
