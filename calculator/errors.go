package calculator

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape: temperature and precipitation series differ in length.
	ErrInputShape = errors.New("calculator: temperature and precipitation lengths differ")

	// ErrShapeMismatch: elevation raster and mask (or domain and weights) differ in shape.
	ErrShapeMismatch = errors.New("calculator: shape mismatch")

	// ErrEmptyDomain: nothing to aggregate over.
	ErrEmptyDomain = errors.New("calculator: empty domain")

	// ErrEmptyForcing: a forcing record without samples.
	ErrEmptyForcing = errors.New("calculator: forcing has no samples")
)

// ShapeError reports the shapes involved in a failed call.
type ShapeError struct {
	Op   string
	Want string
	Got  string
	Err  error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s: %v", e.Op, e.Want, e.Got, e.Err)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}
