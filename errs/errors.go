// Package errs defines the error kinds surfaced by the catalog and order
// managers. Callers classify failures with errors.Is against the exported
// sentinels.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input, rejected before any write.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced id or reference that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation, e.g. an order reference collision.
	ErrConflict = errors.New("conflict")
	// ErrStore marks a failure of the underlying store; the transaction is rolled back.
	ErrStore = errors.New("store error")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Storef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStore, fmt.Sprintf(format, args...))
}
