// Package detector holds the online anomaly detectors. Each detector
// classifies one point at a time against a bounded memory of recent
// history; nothing is ever stored beyond its configured window.
package detector

import (
	"errors"
	"fmt"
)

// Point is a single observation. Dimensionality is fixed per detector
// instance at construction (1 for raw values, 2 for value+time pairs).
type Point []float64

// Clone returns an independent copy, so multiple detectors can consume
// the same observation without sharing mutable state.
func (p Point) Clone() Point {
	c := make(Point, len(p))
	copy(c, p)
	return c
}

// Detector is the contract every detection strategy implements. IsAnomaly
// mutates internal state (buffers slide on each call) and must only fail
// for points of the wrong dimensionality.
type Detector interface {
	IsAnomaly(p Point) (bool, error)
	Name() string
}

var (
	// ErrInvalidConfiguration is returned by constructors when parameters
	// violate the detector's invariants. No detector is produced.
	ErrInvalidConfiguration = errors.New("invalid detector configuration")

	// ErrInvalidInput is returned by IsAnomaly when the point's
	// dimensionality does not match the detector's. State is untouched.
	ErrInvalidInput = errors.New("invalid input point")
)

const maxDims = 2

func validateDims(dims int) error {
	if dims < 1 || dims > maxDims {
		return fmt.Errorf("%w: dims must be 1 or %d, got %d", ErrInvalidConfiguration, maxDims, dims)
	}
	return nil
}

func checkPoint(p Point, dims int) error {
	if len(p) != dims {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrInvalidInput, len(p), dims)
	}
	return nil
}
