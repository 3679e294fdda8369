package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	var err error = &InsufficientStockError{Name: "Lead A", Requested: 20, Available: 7}
	wrapped := fmt.Errorf("adjust: %w", err)
	if !errors.Is(wrapped, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", wrapped)
	}
	var ise *InsufficientStockError
	if !errors.As(wrapped, &ise) || ise.Available != 7 {
		t.Fatalf("expected typed error with available=7, got %v", wrapped)
	}

	amb := fmt.Errorf("case: %w", &AmbiguousMatchError{Key: "S1", Matches: 2})
	if !errors.Is(amb, ErrAmbiguousMatch) {
		t.Fatalf("expected ErrAmbiguousMatch, got %v", amb)
	}
	if errors.Is(amb, ErrNotFound) {
		t.Fatalf("ambiguous match must not look like not found")
	}
}

func TestHelpersWrap(t *testing.T) {
	if err := Validation("patient is required"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if err := NotFound("material", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
