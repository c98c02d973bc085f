// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2020 Datadog, Inc. for original work
// Copyright 2021 GraphMetrics for modifications

// Package ddsketch implements the DDSketch relative-error quantile sketch:
// a mergeable, constant-memory summary of a stream of float64 values that
// answers quantile queries within a guaranteed relative error.
package ddsketch

import (
	"math"

	"github.com/graphmetrics/ddsketch-go/ddsketch/mapping"
	"github.com/graphmetrics/ddsketch-go/ddsketch/store"
)

// DDSketch tracks positive values in positiveStore, negative values
// (by their absolute value) in negativeStore, and zeros - along with any
// value whose magnitude is at most the mapping's MinIndexableValue - in
// zeroCount. negativeStore is nil unless the sketch was built with
// WithNegatives(true); while it is nil, any negative insert is rejected
// with ErrInvalidValue.
type DDSketch struct {
	mapping       mapping.IndexMapping
	positiveStore store.Store
	negativeStore store.Store
	zeroCount     int32
}

// NewDDSketch builds a DDSketch directly from an index mapping and stores,
// matching the teacher's lower-level constructor shape for callers that
// want to pick a Store implementation themselves rather than go through
// Config. negativeStore may be nil to disable negative-value support.
func NewDDSketch(indexMapping mapping.IndexMapping, positiveStore, negativeStore store.Store) *DDSketch {
	return &DDSketch{
		mapping:       indexMapping,
		positiveStore: positiveStore,
		negativeStore: negativeStore,
	}
}

// NewDDSketchFromConfig builds a DDSketch from a Config, wiring up the
// mapping scheme, bucket strategy, collapse policy and negative-value
// support it describes.
func NewDDSketchFromConfig(cfg *Config) (*DDSketch, error) {
	indexMapping, err := mapping.NewMapping(cfg.Mapping, cfg.RelativeAccuracy)
	if err != nil {
		return nil, wrapSketchError(InvalidConfig, "cannot build index mapping", err)
	}
	var negativeStore store.Store
	if cfg.AllowNegative {
		negativeStore = cfg.newStore()
	}
	return NewDDSketch(indexMapping, cfg.newStore(), negativeStore), nil
}

// NewDefaultDDSketch builds an unbounded, logarithmic-mapping, positive-only
// DDSketch at the given relative accuracy - the same defaults the teacher's
// NewDefaultDDSketch exposed.
func NewDefaultDDSketch(relativeAccuracy float64) (*DDSketch, error) {
	return LogUnboundedDenseDDSketch(relativeAccuracy)
}

// LogUnboundedDenseDDSketch constructs a DDSketch that offers constant-time
// insertion and whose size grows indefinitely to accommodate the range of
// input values.
func LogUnboundedDenseDDSketch(relativeAccuracy float64) (*DDSketch, error) {
	indexMapping, err := mapping.NewLogarithmicMapping(relativeAccuracy)
	if err != nil {
		return nil, err
	}
	return NewDDSketch(indexMapping, store.NewUnboundedDenseStore(), nil), nil
}

// LogCollapsingLowestDenseDDSketch constructs a DDSketch whose size grows
// until maxNumBins is reached, at which point the lowest-index buckets are
// collapsed, losing relative accuracy on the lowest quantiles.
func LogCollapsingLowestDenseDDSketch(relativeAccuracy float64, maxNumBins int) (*DDSketch, error) {
	indexMapping, err := mapping.NewLogarithmicMapping(relativeAccuracy)
	if err != nil {
		return nil, err
	}
	return NewDDSketch(indexMapping, store.NewCollapsingLowestDenseStore(maxNumBins), nil), nil
}

// LogCollapsingHighestDenseDDSketch is the mirror image of
// LogCollapsingLowestDenseDDSketch: it collapses the highest-index buckets
// first.
func LogCollapsingHighestDenseDDSketch(relativeAccuracy float64, maxNumBins int) (*DDSketch, error) {
	indexMapping, err := mapping.NewLogarithmicMapping(relativeAccuracy)
	if err != nil {
		return nil, err
	}
	return NewDDSketch(indexMapping, store.NewCollapsingHighestDenseStore(maxNumBins), nil), nil
}

// RelativeAccuracy returns the sketch's guaranteed relative error.
func (s *DDSketch) RelativeAccuracy() float64 {
	return s.mapping.RelativeAccuracy()
}

// Insert adds value to the sketch once.
func (s *DDSketch) Insert(value float64) error {
	return s.InsertWithCount(value, 1)
}

// InsertWithCount adds value to the sketch count times.
func (s *DDSketch) InsertWithCount(value float64, count int32) error {
	if count < 0 {
		return newSketchError(InvalidValue, "count cannot be negative")
	}
	if count == 0 {
		return nil
	}
	if value < 0 {
		if s.negativeStore == nil {
			return newSketchError(InvalidValue, "sketch does not track negative values")
		}
		if -value > s.mapping.MaxIndexableValue() {
			return newSketchError(InvalidValue, "input magnitude is outside the range tracked by the sketch")
		}
		if -value <= s.mapping.MinIndexableValue() {
			s.zeroCount += count
			return nil
		}
		idx, err := s.mapping.Index(-value)
		if err != nil {
			return wrapSketchError(InvalidValue, "cannot index input value", err)
		}
		s.negativeStore.AddWithCount(idx, count)
		return nil
	}
	if value > s.mapping.MaxIndexableValue() {
		return newSketchError(InvalidValue, "input value is outside the range tracked by the sketch")
	}
	if value <= s.mapping.MinIndexableValue() {
		s.zeroCount += count
		return nil
	}
	idx, err := s.mapping.Index(value)
	if err != nil {
		return wrapSketchError(InvalidValue, "cannot index input value", err)
	}
	s.positiveStore.AddWithCount(idx, count)
	return nil
}

// Delete removes one occurrence of value from the sketch, if present.
// Removing a value that was never inserted, or more copies than remain, is
// a no-op beyond what is actually present - DDSketch does not track
// per-bucket membership at single-value granularity, so Delete reverses an
// Insert of the same value, not a specific occurrence.
func (s *DDSketch) Delete(value float64) error {
	return s.DeleteWithCount(value, 1)
}

// DeleteWithCount removes up to count occurrences of value.
func (s *DDSketch) DeleteWithCount(value float64, count int32) error {
	if count < 0 {
		return newSketchError(InvalidValue, "count cannot be negative")
	}
	if count == 0 {
		return nil
	}
	if value < 0 {
		if s.negativeStore == nil {
			return nil
		}
		if -value <= s.mapping.MinIndexableValue() {
			s.removeZero(count)
			return nil
		}
		idx, err := s.mapping.Index(-value)
		if err != nil {
			return wrapSketchError(InvalidValue, "cannot index input value", err)
		}
		s.negativeStore.RemoveWithCount(idx, count)
		return nil
	}
	if value <= s.mapping.MinIndexableValue() {
		s.removeZero(count)
		return nil
	}
	idx, err := s.mapping.Index(value)
	if err != nil {
		return wrapSketchError(InvalidValue, "cannot index input value", err)
	}
	s.positiveStore.RemoveWithCount(idx, count)
	return nil
}

func (s *DDSketch) removeZero(count int32) {
	if count > s.zeroCount {
		count = s.zeroCount
	}
	s.zeroCount -= count
}

// Copy returns a deep copy of the sketch.
func (s *DDSketch) Copy() *DDSketch {
	cp := &DDSketch{
		mapping:       s.mapping,
		positiveStore: s.positiveStore.Copy(),
		zeroCount:     s.zeroCount,
	}
	if s.negativeStore != nil {
		cp.negativeStore = s.negativeStore.Copy()
	}
	return cp
}

// GetValueAtQuantile returns the approximate value at the given quantile.
// Rank is computed as quantile * (count - 1), and the returned value is the
// first bucket whose cumulative count strictly exceeds that rank.
func (s *DDSketch) GetValueAtQuantile(quantile float64) (float64, error) {
	v, err := s.quantile(quantile)
	return v, err
}

func (s *DDSketch) quantile(quantile float64) (float64, error) {
	if quantile < 0 || quantile > 1 {
		return math.NaN(), newSketchError(InvalidQuantile, "quantile must be between 0 and 1")
	}
	count := s.GetCount()
	if count == 0 {
		return math.NaN(), newSketchError(EmptySketch, "cannot compute a quantile of an empty sketch")
	}

	rank := quantile * float64(count-1)

	negativeCount := int32(0)
	if s.negativeStore != nil {
		negativeCount = s.negativeStore.TotalCount()
	}

	switch {
	case rank < float64(negativeCount):
		// Ascending actual value means descending magnitude: the most
		// negative value has the largest index in negativeStore, so a
		// descending walk over negativeStore visits negatives in the same
		// order as an ascending walk over actual values.
		return -s.mapping.Value(s.negativeStore.KeyAtRank(rank, true)), nil
	case rank < float64(negativeCount)+float64(s.zeroCount):
		return 0, nil
	default:
		positiveRank := rank - float64(negativeCount) - float64(s.zeroCount)
		return s.mapping.Value(s.positiveStore.KeyAtRank(positiveRank, false)), nil
	}
}

// GetValuesAtQuantiles returns the approximate values at each of the given
// quantiles.
func (s *DDSketch) GetValuesAtQuantiles(quantiles []float64) ([]float64, error) {
	values := make([]float64, len(quantiles))
	for i, q := range quantiles {
		val, err := s.GetValueAtQuantile(q)
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return values, nil
}

// GetCount returns the total number of values that have been added to this
// sketch (net of deletions).
func (s *DDSketch) GetCount() int32 {
	count := s.zeroCount + s.positiveStore.TotalCount()
	if s.negativeStore != nil {
		count += s.negativeStore.TotalCount()
	}
	return count
}

// IsEmpty reports whether no value is currently tracked by this sketch.
func (s *DDSketch) IsEmpty() bool {
	return s.GetCount() == 0
}

// GetMaxValue returns the maximum value tracked by this sketch, or an error
// if the sketch is empty.
func (s *DDSketch) GetMaxValue() (float64, error) {
	if !s.positiveStore.IsEmpty() {
		maxIndex, _ := s.positiveStore.MaxIndex()
		return s.mapping.Value(maxIndex), nil
	}
	if s.zeroCount > 0 {
		return 0, nil
	}
	if s.negativeStore != nil && !s.negativeStore.IsEmpty() {
		minIndex, _ := s.negativeStore.MinIndex()
		return -s.mapping.Value(minIndex), nil
	}
	return math.NaN(), newSketchError(EmptySketch, "cannot compute the max value of an empty sketch")
}

// GetMinValue returns the minimum value tracked by this sketch, or an error
// if the sketch is empty.
func (s *DDSketch) GetMinValue() (float64, error) {
	if s.negativeStore != nil && !s.negativeStore.IsEmpty() {
		maxIndex, _ := s.negativeStore.MaxIndex()
		return -s.mapping.Value(maxIndex), nil
	}
	if s.zeroCount > 0 {
		return 0, nil
	}
	if !s.positiveStore.IsEmpty() {
		minIndex, _ := s.positiveStore.MinIndex()
		return s.mapping.Value(minIndex), nil
	}
	return math.NaN(), newSketchError(EmptySketch, "cannot compute the min value of an empty sketch")
}

// Merge folds other into this sketch. After this operation, this sketch
// encodes every value added to either sketch. Both sketches must share the
// same index mapping.
func (s *DDSketch) Merge(other *DDSketch) error {
	if !s.mapping.Equals(other.mapping) {
		return newSketchError(IncompatibleMerge, "cannot merge sketches with different index mappings")
	}
	if (s.negativeStore == nil) != (other.negativeStore == nil) {
		return newSketchError(IncompatibleMerge, "cannot merge sketches with mismatched negative-value support")
	}
	s.positiveStore.MergeWith(other.positiveStore)
	if s.negativeStore != nil {
		s.negativeStore.MergeWith(other.negativeStore)
	}
	s.zeroCount += other.zeroCount
	return nil
}

// Bins drains the positive-value buckets of the sketch. Negative and zero
// counts are not included.
func (s *DDSketch) Bins() <-chan store.Bin {
	return s.positiveStore.Bins()
}
