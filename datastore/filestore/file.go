/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore

import (
	"cmp"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/suparena/objectstore/errors"
)

// ReadRecords reads every record of a file. A missing file yields no records.
func ReadRecords(path string, codec Codec) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, errors.NewBackendError("read", path, err)
	}
	defer f.Close()

	records, err := codec.Decode(f)
	if err != nil {
		return nil, errors.NewMalformedStorageError(path, err)
	}
	return records, nil
}

// WriteRecords replaces the content of a file with records, in the given
// order. The file is written next to its destination and renamed over it, so
// readers never observe a partial file.
func WriteRecords(path string, codec Codec, records []Record) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewBackendError("write", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewBackendError("write", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := codec.Encode(tmp, records); err != nil {
		tmp.Close()
		return errors.NewBackendError("encode", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewBackendError("write", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewBackendError("write", path, fmt.Errorf("replace file: %w", err))
	}
	return nil
}

// SortRecords sorts records by key, stably. Records without a key keep their
// relative order after every keyed record.
func SortRecords(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.HasID && b.HasID:
			return cmp.Compare(a.ID, b.ID)
		case a.HasID:
			return -1
		case b.HasID:
			return 1
		default:
			return 0
		}
	})
}
