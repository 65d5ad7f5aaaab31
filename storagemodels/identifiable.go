/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"cmp"
	"slices"
)

// Identifiable is implemented by every persisted entity. Keys are unique within
// one entity class; key spaces of different classes are independent.
type Identifiable interface {
	PrimaryKey() int64
}

// ComparePrimaryKeys orders two entities by primary key, ascending.
func ComparePrimaryKeys[E Identifiable](a, b E) int {
	return cmp.Compare(a.PrimaryKey(), b.PrimaryKey())
}

// SortByPrimaryKey returns a copy of entities sorted by ascending primary key.
// The sort is stable and the input slice is left untouched.
func SortByPrimaryKey[E Identifiable](entities []E) []E {
	sorted := slices.Clone(entities)
	slices.SortStableFunc(sorted, ComparePrimaryKeys[E])
	return sorted
}

// PrimaryKeys returns the keys of entities, preserving order.
func PrimaryKeys[E Identifiable](entities []E) []int64 {
	keys := make([]int64, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.PrimaryKey())
	}
	return keys
}

// IndexByPrimaryKey builds a key -> entity map. Later entries win on collision.
func IndexByPrimaryKey[E Identifiable](entities []E) map[int64]E {
	index := make(map[int64]E, len(entities))
	for _, e := range entities {
		index[e.PrimaryKey()] = e
	}
	return index
}
