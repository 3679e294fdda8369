// Package errs holds the error taxonomy shared by the ledger, the transaction
// builders, the undo engine and the importer. Callers match with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAmbiguousMatch    = errors.New("ambiguous match")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate record")
	ErrNotReversible     = errors.New("entry is not reversible")
)

// Validation builds an ErrValidation with a field-level message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound reports an unknown id of the given entity kind.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

type InsufficientStockError struct {
	MaterialID string
	Name       string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// AmbiguousMatchError is returned when a serial/lot key resolves to zero or
// several materials where exactly one is required.
type AmbiguousMatchError struct {
	Key     string
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no material matches %q", e.Key)
	}
	return fmt.Sprintf("%d materials match %q", e.Matches, e.Key)
}

func (e *AmbiguousMatchError) Is(target error) bool { return target == ErrAmbiguousMatch }
