/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore

import (
	"maps"
	"slices"
	"strconv"

	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

// Record is the stored form of one entity.
type Record struct {
	ID         int64
	HasID      bool
	Attributes map[string]string
	Children   []Element
}

// Element is a child element of a record.
type Element struct {
	Name       string
	Attributes map[string]string
	Text       string
}

// NewRecord creates a record keyed by the primary key of e.
func NewRecord(e storagemodels.Identifiable) Record {
	return Record{ID: e.PrimaryKey(), HasID: true, Attributes: map[string]string{}}
}

// Set stores an attribute and returns the record for chaining.
func (r Record) Set(name, value string) Record {
	if r.Attributes == nil {
		r.Attributes = map[string]string{}
	}
	r.Attributes[name] = value
	return r
}

// Attr returns the named attribute.
func (r Record) Attr(name string) (string, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// IntAttr parses the named attribute as an integer. An absent attribute
// yields def.
func (r Record) IntAttr(name string, def int64) (int64, error) {
	v, ok := r.Attributes[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, errors.NewValidationError(name, "not an integer: "+v)
	}
	return n, nil
}

// ChildrenNamed returns the child elements with the given name, in order.
func (r Record) ChildrenNamed(name string) []Element {
	var out []Element
	for _, c := range r.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

// Mapper converts between records and entities of class E.
type Mapper[E storagemodels.Identifiable] interface {
	// Decode builds an entity from a record. Returning false skips the record.
	Decode(rec Record) (E, bool, error)

	// Encode builds the record of an entity. The record key is always set from
	// the entity's primary key.
	Encode(e E) (Record, error)
}

// MapperFuncs adapts a pair of functions to the Mapper interface.
type MapperFuncs[E storagemodels.Identifiable] struct {
	DecodeFunc func(rec Record) (E, bool, error)
	EncodeFunc func(e E) (Record, error)
}

func (m MapperFuncs[E]) Decode(rec Record) (E, bool, error) {
	return m.DecodeFunc(rec)
}

func (m MapperFuncs[E]) Encode(e E) (Record, error) {
	if m.EncodeFunc == nil {
		return NewRecord(e), nil
	}
	return m.EncodeFunc(e)
}
