// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2020 Datadog, Inc. for original work
// Copyright 2021 GraphMetrics for modifications

package mapping

import (
	"errors"
	"fmt"
)

const (
	expOverflow      = 7.094361393031e+02      // The value at which math.Exp overflows
	minNormalFloat64 = 2.2250738585072014e-308 //2^(-1022)
)

// ErrNonPositiveValue is returned by Index when asked to map a value that
// is not strictly positive - the logarithm underlying every IndexMapping
// implementation is only defined there.
var ErrNonPositiveValue = errors.New("mapping: index is only defined for strictly positive values")

type IndexMapping interface {
	Equals(other IndexMapping) bool
	Index(value float64) (int, error)
	Value(index int) float64
	RelativeAccuracy() float64
	MinIndexableValue() float64
	MaxIndexableValue() float64
}

// Scheme identifies one of the three interchangeable IndexMapping
// implementations. It is the wire name used by Config.
type Scheme string

const (
	Logarithmic        Scheme = "logarithmic"
	LinearInterpolation Scheme = "linear_interpolation"
	CubicInterpolation  Scheme = "cubic_interpolation"
)

// NewMapping builds the IndexMapping for the given scheme and relative
// accuracy. It is the single place Config goes through to turn a scheme
// name into a concrete mapping.
func NewMapping(scheme Scheme, relativeAccuracy float64) (IndexMapping, error) {
	switch scheme {
	case "", Logarithmic:
		return NewLogarithmicMapping(relativeAccuracy)
	case LinearInterpolation:
		return NewLinearlyInterpolatedMapping(relativeAccuracy)
	case CubicInterpolation:
		return NewCubicallyInterpolatedMapping(relativeAccuracy)
	default:
		return nil, fmt.Errorf("mapping: unknown scheme %q", scheme)
	}
}
