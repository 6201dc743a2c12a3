package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/domovra/domovra/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify turns a driver error into one of the model error kinds. Foreign key
// violations become ErrInvalidReference, unique violations ErrConflict and
// anything else a StorageError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", op, model.ErrInvalidReference)
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", op, model.ErrConflict)
		case sqlite3.SQLITE_CONSTRAINT:
			// Extended codes disabled: fall back to the message.
			msg := se.Error()
			switch {
			case strings.Contains(msg, "FOREIGN KEY"):
				return fmt.Errorf("%s: %w", op, model.ErrInvalidReference)
			case strings.Contains(msg, "UNIQUE"):
				return fmt.Errorf("%s: %w", op, model.ErrConflict)
			}
		}
	}
	return &model.StorageError{Op: op, Err: err}
}
