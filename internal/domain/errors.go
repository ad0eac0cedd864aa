package domain

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Data-shape and not-found errors propagate unmodified
// to API callers; absence of personalization signal is never an error.
var (
	// ErrNotFound indicates a missing entity (feature, artwork, user state).
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an illegal overwrite of immutable data, such as
	// re-putting a frozen feature for an existing (artwork, model version).
	ErrConflict = errors.New("conflict: immutable data already exists")

	// ErrEmptyPool indicates a recommendation request with no candidates.
	ErrEmptyPool = errors.New("empty candidate pool")

	// ErrInvalidOutcome indicates an unrecognized feedback outcome value.
	ErrInvalidOutcome = errors.New("invalid feedback outcome")

	// ErrExtractionTimeout indicates the embedding oracle did not respond
	// within the configured deadline, after retry.
	ErrExtractionTimeout = errors.New("feature extraction timed out")
)

// DimensionError reports a vector whose dimension does not match the
// engine's configured dimension D.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(want, got int) *DimensionError {
	return &DimensionError{Want: want, Got: got}
}

// IsDimensionError reports whether err is a DimensionError.
func IsDimensionError(err error) bool {
	var de *DimensionError
	return errors.As(err, &de)
}
