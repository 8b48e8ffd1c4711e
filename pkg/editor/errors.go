package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when a product already in the working set is
	// dropped or picked up again.
	ErrDuplicate = errors.New("editor: product already added")

	// ErrHalted is returned for catalog actions after the collection was
	// refused with 403.
	ErrHalted = errors.New("editor: catalog unavailable for this collection")
)

// ValidationError is a drop payload that could not be decoded into a product.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("editor: invalid drop payload: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
