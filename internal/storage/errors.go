package storage

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrStorageUnavailable means the database could not be opened, read or
	// written (closed, locked, read-only, corrupt).
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageQuotaExceeded means a write failed because the database or
	// disk is full.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")

	// ErrNotFound is returned when a record addressed by key does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrSchemaTooNew means the database was migrated by a newer release.
	ErrSchemaTooNew = errors.New("database schema is newer than this release")
)

// wrap annotates err with op and classifies it as unavailable or quota
// exceeded. Both the class and the cause stay visible to errors.Is/As.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrStorageQuotaExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, classify(err), err)
}

func classify(err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_FULL, sqlite3.SQLITE_TOOBIG:
			return ErrStorageQuotaExceeded
		}
	}
	return ErrStorageUnavailable
}
