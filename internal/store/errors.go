package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound signals a missing row on keyed lookups.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation signals a broken store invariant; the
	// enclosing transaction is rolled back in full.
	ErrConstraintViolation = errors.New("constraint violation")
)

// mapConstraintErr folds SQLite constraint failures into the store's
// error taxonomy so callers can branch with errors.Is.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrNotFound) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return errors.Join(ErrConstraintViolation, err)
	}
	return err
}
