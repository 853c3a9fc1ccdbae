package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/facturas/internal/validation"
)

// Sentinel errors forming the service taxonomy. Handlers map these to
// machine-readable response codes with errors.Is.
var (
	// ErrInvalidInput covers missing required fields, non-numeric monetary or
	// quantity values and malformed proposed invoice numbers. Nothing has
	// been written when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage wraps any underlying store fault.
	ErrStorage = errors.New("storage error")

	// ErrRenderer signals that the invoice was persisted but the document
	// could not be produced; the caller can retry rendering without
	// re-creating the invoice.
	ErrRenderer = errors.New("document rendering failed")

	// ErrNumberExhausted is returned when the allocation probe gives up
	// after its bounded number of attempts.
	ErrNumberExhausted = errors.New("invoice number space exhausted")

	// ErrProductDiverged is returned when an active product with the same
	// name exists at a different price or tax rate and the caller did not
	// allow replacing it.
	ErrProductDiverged = errors.New("product price or tax rate diverged")
)

// InputError carries field-level violations alongside ErrInvalidInput.
type InputError struct {
	Violations validation.Violations
}

func (e *InputError) Error() string {
	if len(e.Violations) == 1 {
		for field, msg := range e.Violations {
			return fmt.Sprintf("invalid input: %s %s", field, msg)
		}
	}
	return fmt.Sprintf("invalid input: %d violations", len(e.Violations))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(field, msg string) error {
	v := make(validation.Violations)
	v[field] = msg
	return &InputError{Violations: v}
}

// storageErr tags an unexpected store fault with ErrStorage while keeping
// the operation context in the message.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
