package clio

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad is returned when an archive is missing, unreadable or
	// internally inconsistent. All load failures satisfy
	// errors.Is(err, ErrLoad).
	ErrLoad = errors.New("load archive")

	// ErrInvalidQuery is returned when a query vector has the wrong
	// dimensionality or zero magnitude. Callers should validate encoder
	// output before querying.
	ErrInvalidQuery = errors.New("invalid query vector")

	// ErrInvalidK is returned when k is not a positive integer.
	ErrInvalidK = errors.New("k must be positive")

	// ErrUnknownIdentifier is returned by Lookup for identifiers not in
	// the index.
	ErrUnknownIdentifier = errors.New("unknown identifier")
)

// DimensionMismatchError indicates a query vector whose length differs from
// the index dimension. It satisfies errors.Is(err, ErrInvalidQuery).
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("query vector has dimension %d, index has %d", e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrInvalidQuery }
