/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table maps an entity class to a table.
type Table[E storagemodels.Identifiable] struct {
	// Name of the table.
	Name string
	// Key is the primary key column (default "id").
	Key string
	// Columns lists every stored column, in the order used by Scan and Values.
	Columns []string
	Scan    func(row Scanner) (E, error)
	Values  func(e E) []any

	// PartialColumns and ScanPartial select the primary attributes only.
	// When unset, partial loads are full loads.
	PartialColumns []string
	ScanPartial    func(row Scanner) (E, error)

	// Hydrate completes a fully loaded entity, typically by loading related
	// entities of other classes from the source. Partial loads skip it.
	Hydrate func(ctx context.Context, src *objectstore.Source, e E) error

	// Relations maps a relation name to a query selecting related keys. The
	// query takes the root key as its only parameter.
	Relations map[string]string
	// Sets maps a set identifier to a query selecting keys. The query takes
	// the set parameters.
	Sets map[string]string
}

func (t Table[E]) key() string {
	if t.Key == "" {
		return "id"
	}
	return t.Key
}

func (t Table[E]) validate() error {
	switch {
	case t.Name == "":
		return errors.NewValidationError("name", "table name is required")
	case len(t.Columns) == 0:
		return errors.NewValidationError("columns", fmt.Sprintf("table %s has no columns", t.Name))
	case t.Scan == nil:
		return errors.NewValidationError("scan", fmt.Sprintf("table %s has no scan function", t.Name))
	case t.Values == nil:
		return errors.NewValidationError("values", fmt.Sprintf("table %s has no values function", t.Name))
	case !slices.Contains(t.Columns, t.key()):
		return errors.NewValidationError("key", fmt.Sprintf("table %s does not list key column %s", t.Name, t.key()))
	case (len(t.PartialColumns) == 0) != (t.ScanPartial == nil):
		return errors.NewValidationError("partial", fmt.Sprintf("table %s needs both partial columns and a partial scan", t.Name))
	}
	return nil
}

func (t Table[E]) selectSQL(columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), t.Name)
}

func (t Table[E]) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(t.Columns, ", "), placeholders(len(t.Columns)))
}

// updateSQL returns the UPDATE statement and the index of the key in Columns.
func (t Table[E]) updateSQL() (string, int) {
	keyIdx := slices.Index(t.Columns, t.key())
	sets := make([]string, 0, len(t.Columns)-1)
	for i, col := range t.Columns {
		if i != keyIdx {
			sets = append(sets, col+" = ?")
		}
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.Name, strings.Join(sets, ", "), t.key()), keyIdx
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
