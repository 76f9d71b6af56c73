package sqlite

import (
	"errors"
	"fmt"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/mattn/go-sqlite3"
)

// IsConflict reports whether err is a lock contention or uniqueness
// violation raised by SQLite
func IsConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return true
	case sqlite3.ErrConstraint:
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Classify tags conflicts with port.ErrStorageConflict, keeping the driver error in the chain
func Classify(err error) error {
	if err == nil || !IsConflict(err) {
		return err
	}
	return fmt.Errorf("%w: %w", port.ErrStorageConflict, err)
}
