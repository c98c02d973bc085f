// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2020 Datadog, Inc. for original work
// Copyright 2021 GraphMetrics for modifications

package mapping

import (
	"errors"
	"math"
)

// Minimax cubic correction to log2(1+f) on [0, 1), matching the published
// DDSketch reference implementation: C(f) = A*f^3 + B*f^2 + C*f.
const (
	cubicA = 6.0 / 35.0
	cubicB = -3.0 / 5.0
	cubicC = 10.0 / 7.0
)

// CubicallyInterpolatedMapping approximates the memory-optimal
// LogarithmicMapping the same way LinearlyInterpolatedMapping does, but
// replaces the linear interpolation of the fractional part of the binary
// logarithm with a cubic polynomial fit, which lowers the worst-case error
// of the approximation for a given multiplier.
type CubicallyInterpolatedMapping struct {
	relativeAccuracy      float64
	multiplier            float64
	normalizedIndexOffset float64
}

func NewCubicallyInterpolatedMapping(relativeAccuracy float64) (*CubicallyInterpolatedMapping, error) {
	if relativeAccuracy <= 0 || relativeAccuracy >= 1 {
		return nil, errors.New("the relative accuracy must be between 0 and 1")
	}
	return &CubicallyInterpolatedMapping{
		relativeAccuracy: relativeAccuracy,
		multiplier:       1.0 / math.Log1p(2*relativeAccuracy/(1-relativeAccuracy)),
	}, nil
}

func NewCubicallyInterpolatedMappingWithGamma(gamma, indexOffset float64) (*CubicallyInterpolatedMapping, error) {
	if gamma <= 1 {
		return nil, errors.New("gamma must be greater than 1")
	}
	m := CubicallyInterpolatedMapping{
		relativeAccuracy: 1 - 2/(1+math.Exp(math.Log2(gamma))),
		multiplier:       1 / math.Log2(gamma),
	}
	m.normalizedIndexOffset = indexOffset - m.approximateLog(1)*m.multiplier
	return &m, nil
}

func (m *CubicallyInterpolatedMapping) Equals(other IndexMapping) bool {
	o, ok := other.(*CubicallyInterpolatedMapping)
	if !ok {
		return false
	}
	tol := 1e-12
	return withinTolerance(m.multiplier, o.multiplier, tol) && withinTolerance(m.normalizedIndexOffset, o.normalizedIndexOffset, tol)
}

func (m *CubicallyInterpolatedMapping) Index(value float64) (int, error) {
	if value <= 0 {
		return 0, ErrNonPositiveValue
	}
	index := m.approximateLog(value)*m.multiplier + m.normalizedIndexOffset
	if index >= 0 {
		return int(index), nil
	}
	return int(index) - 1, nil
}

func (m *CubicallyInterpolatedMapping) Value(index int) float64 {
	return m.approximateInverseLog((float64(index)-m.normalizedIndexOffset)/m.multiplier) * (1 + m.relativeAccuracy)
}

// approximateLog returns an approximation of log2(x), using the exponent
// plus a cubic correction of the significand's fractional part (so
// approximateLog(1) is 0, unlike the linear scheme's 1 + log2(x)).
func (m *CubicallyInterpolatedMapping) approximateLog(x float64) float64 {
	bits := math.Float64bits(x)
	exponent := getExponent(bits)
	significandPlusOne := getSignificandPlusOne(bits)
	f := significandPlusOne - 1
	return exponent + cubicC*f + cubicB*f*f + cubicA*f*f*f
}

// approximateInverseLog is the (numeric) inverse of approximateLog, found by
// Newton's method on the cubic correction. The cubic is monotone on [0, 1),
// so a handful of iterations from the linear-scheme estimate converge well
// within float64 precision.
func (m *CubicallyInterpolatedMapping) approximateInverseLog(x float64) float64 {
	exponent := math.Floor(x)
	target := x - exponent

	// Newton's method seeded with the linear scheme's estimate, solving
	// cubicC*f + cubicB*f^2 + cubicA*f^3 - target = 0 for f in [0, 1).
	f := target
	for i := 0; i < 8; i++ {
		val := cubicC*f + cubicB*f*f + cubicA*f*f*f - target
		deriv := cubicC + 2*cubicB*f + 3*cubicA*f*f
		if deriv == 0 {
			break
		}
		next := f - val/deriv
		if math.Abs(next-f) < 1e-15 {
			f = next
			break
		}
		f = next
	}
	if f < 0 {
		f = 0
	} else if f >= 1 {
		f = math.Nextafter(1, 0)
	}

	return buildFloat64(int(exponent), f+1)
}

func (m *CubicallyInterpolatedMapping) MinIndexableValue() float64 {
	return math.Max(
		math.Exp2((math.MinInt16-m.normalizedIndexOffset)/m.multiplier-m.approximateLog(1)+1),
		minNormalFloat64*(1+m.relativeAccuracy)/(1-m.relativeAccuracy),
	)
}

func (m *CubicallyInterpolatedMapping) MaxIndexableValue() float64 {
	return math.Min(
		math.Exp2((math.MaxInt16-m.normalizedIndexOffset)/m.multiplier-m.approximateLog(1)-1),
		math.Exp(expOverflow)/(1+m.relativeAccuracy),
	)
}

func (m *CubicallyInterpolatedMapping) RelativeAccuracy() float64 {
	return m.relativeAccuracy
}
