// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2021 GraphMetrics for modifications

package store

import (
	"errors"
	"math"
)

// initialDenseArrayLength is the starting backing-array size for an
// unbounded DenseStore; it grows (by doubling) as the observed index range
// widens.
const initialDenseArrayLength = 128

// DenseStore is a ring-buffer bucket store: a fixed- or growable-length
// array A of counts with a signed offset giving the array position that
// corresponds to minIndex. Array positions are computed with floorMod so
// that the array is never physically shifted on a new extreme value - only
// offset and minIndex move.
//
// When maxNumBins is 0 the store is unbounded: its backing array grows
// (and is re-centered) to admit any index range, and it never collapses.
// When maxNumBins is positive the backing array always has that fixed
// length, and the configured CollapsePolicy folds buckets
// whenever a new index would otherwise widen the range past the cap.
type DenseStore struct {
	bins       []int32
	count      int32
	numPresent int
	minIndex   int
	maxIndex   int
	offset     int
	maxNumBins int
	policy     CollapsePolicy
}

func newDenseStore(maxNumBins int, policy CollapsePolicy) *DenseStore {
	return &DenseStore{minIndex: math.MaxInt32, maxIndex: math.MinInt32, maxNumBins: maxNumBins, policy: policy}
}

// NewDenseStore constructs an unbounded DenseStore, matching the teacher
// constructor's name. Its size grows indefinitely to accommodate the range
// of input values.
func NewDenseStore() *DenseStore {
	return newDenseStore(0, CollapseLowest)
}

// NewUnboundedDenseStore is an explicit alias for NewDenseStore.
func NewUnboundedDenseStore() *DenseStore {
	return newDenseStore(0, CollapseLowest)
}

// NewCollapsingLowestDenseStore constructs a DenseStore capped at
// maxNumBins that collapses the lowest-index buckets first once the cap
// would otherwise be exceeded.
func NewCollapsingLowestDenseStore(maxNumBins int) *DenseStore {
	s := newDenseStore(maxNumBins, CollapseLowest)
	s.bins = make([]int32, maxNumBins)
	return s
}

// NewCollapsingHighestDenseStore is the mirror image of
// NewCollapsingLowestDenseStore: it collapses the highest-index buckets
// first.
func NewCollapsingHighestDenseStore(maxNumBins int) *DenseStore {
	s := newDenseStore(maxNumBins, CollapseHighest)
	s.bins = make([]int32, maxNumBins)
	return s
}

func (s *DenseStore) position(index int) int {
	return floorMod(s.offset+(index-s.minIndex), len(s.bins))
}

// shiftMinIndex moves minIndex to newMin and carries offset along by the
// same delta, so position() keeps returning the same physical slot for
// every index whose bucket didn't move - the way
// original_source/GPUQuantile/ddsketch/storage/contiguous.py's
// _center_data keeps head and min_index in lockstep. Every assignment to
// minIndex outside of a full reset (initialize, growAndCenter) must go
// through this instead of setting the field directly.
func (s *DenseStore) shiftMinIndex(newMin int) {
	s.offset = floorMod(s.offset+(newMin-s.minIndex), len(s.bins))
	s.minIndex = newMin
}

func (s *DenseStore) Add(index int) {
	s.AddWithCount(index, 1)
}

func (s *DenseStore) AddBin(bin Bin) {
	s.AddWithCount(bin.Index(), bin.Count())
}

func (s *DenseStore) AddWithCount(index int, count int32) {
	if count <= 0 {
		return
	}
	if s.minIndex > s.maxIndex {
		s.initialize(index)
	} else if index < s.minIndex || index > s.maxIndex {
		index = s.extendRangeAndClamp(index)
	}
	pos := s.position(index)
	wasZero := s.bins[pos] == 0
	s.bins[pos] += count
	if wasZero {
		s.numPresent++
	}
	s.count += count
}

func (s *DenseStore) initialize(index int) {
	length := s.maxNumBins
	if length <= 0 {
		length = initialDenseArrayLength
	}
	s.bins = make([]int32, length)
	s.offset = 0
	s.minIndex = index
	s.maxIndex = index
}

// extendRangeAndClamp grows the backing array (unbounded store) or collapses
// buckets per policy (capped store) so that index has somewhere to land,
// and returns the index actually written to - which may be index itself, or
// the boundary index it collapsed into.
func (s *DenseStore) extendRangeAndClamp(index int) int {
	newMin, newMax := s.minIndex, s.maxIndex
	if index < newMin {
		newMin = index
	}
	if index > newMax {
		newMax = index
	}
	span := newMax - newMin + 1

	switch {
	case s.maxNumBins > 0 && span > s.maxNumBins:
		if s.policy == CollapseHighest {
			desiredMax := newMin + s.maxNumBins - 1
			s.foldAbove(desiredMax)
			s.shiftMinIndex(newMin)
			s.maxIndex = desiredMax
		} else {
			desiredMin := newMax - s.maxNumBins + 1
			s.foldBelow(desiredMin)
			s.shiftMinIndex(desiredMin)
			s.maxIndex = newMax
		}
	case span > len(s.bins):
		s.growAndCenter(newMin, newMax)
		s.minIndex, s.maxIndex = newMin, newMax
	default:
		s.shiftMinIndex(newMin)
		s.maxIndex = newMax
	}

	if index < s.minIndex {
		index = s.minIndex
	} else if index > s.maxIndex {
		index = s.maxIndex
	}
	return index
}

// foldBelow folds every present bucket with index < newMin into the bucket
// at newMin. It leaves minIndex/maxIndex/offset untouched - the caller
// (extendRangeAndClamp) owns the single post-fold bound update, via
// shiftMinIndex, so offset only ever moves once per extend.
func (s *DenseStore) foldBelow(newMin int) {
	oldMin := s.minIndex
	upper := newMin
	if upper > s.maxIndex+1 {
		upper = s.maxIndex + 1
	}

	var sum int32
	if upper > oldMin {
		destPos := s.position(newMin)
		for idx := oldMin; idx < upper; idx++ {
			pos := s.position(idx)
			if s.bins[pos] != 0 {
				sum += s.bins[pos]
				s.bins[pos] = 0
				s.numPresent--
			}
		}
		if sum > 0 {
			wasPresent := s.bins[destPos] != 0
			s.bins[destPos] += sum
			if !wasPresent {
				s.numPresent++
			}
		}
	}

	logCollapse(CollapseLowest, newMin-1, s.numPresent)
}

// foldAbove is the mirror of foldBelow for CollapseHighest.
func (s *DenseStore) foldAbove(newMax int) {
	oldMax := s.maxIndex
	lower := newMax + 1
	if lower < s.minIndex {
		lower = s.minIndex
	}

	var sum int32
	if lower <= oldMax {
		destPos := s.position(newMax)
		for idx := lower; idx <= oldMax; idx++ {
			pos := s.position(idx)
			if s.bins[pos] != 0 {
				sum += s.bins[pos]
				s.bins[pos] = 0
				s.numPresent--
			}
		}
		if sum > 0 {
			wasPresent := s.bins[destPos] != 0
			s.bins[destPos] += sum
			if !wasPresent {
				s.numPresent++
			}
		}
	}

	logCollapse(CollapseHighest, newMax+1, s.numPresent)
}

// growAndCenter reallocates the backing array (doubling until it can hold
// [newMin, newMax]) and copies existing data across. Only ever called for
// the unbounded store.
func (s *DenseStore) growAndCenter(newMin, newMax int) {
	length := len(s.bins)
	if length == 0 {
		length = initialDenseArrayLength
	}
	span := newMax - newMin + 1
	for length < span {
		length *= 2
	}

	newBins := make([]int32, length)
	if s.minIndex <= s.maxIndex {
		for idx := s.minIndex; idx <= s.maxIndex; idx++ {
			if c := s.bins[s.position(idx)]; c != 0 {
				newBins[idx-newMin] = c
			}
		}
	}
	s.bins = newBins
	s.offset = 0
}

func (s *DenseStore) Remove(index int) {
	s.RemoveWithCount(index, 1)
}

func (s *DenseStore) RemoveWithCount(index int, count int32) {
	if count <= 0 || s.minIndex > s.maxIndex || index < s.minIndex || index > s.maxIndex {
		return
	}
	pos := s.position(index)
	if s.bins[pos] == 0 {
		return
	}
	removed := count
	if removed > s.bins[pos] {
		removed = s.bins[pos]
	}
	s.bins[pos] -= removed
	s.count -= removed
	if s.bins[pos] != 0 {
		return
	}
	s.numPresent--
	switch {
	case s.numPresent == 0:
		s.minIndex, s.maxIndex = math.MaxInt32, math.MinInt32
	case index == s.minIndex:
		s.advanceMinIndex()
	case index == s.maxIndex:
		s.retreatMaxIndex()
	}
}

func (s *DenseStore) advanceMinIndex() {
	for idx := s.minIndex + 1; idx <= s.maxIndex; idx++ {
		if s.bins[s.position(idx)] != 0 {
			s.shiftMinIndex(idx)
			return
		}
	}
}

func (s *DenseStore) retreatMaxIndex() {
	for idx := s.maxIndex - 1; idx >= s.minIndex; idx-- {
		if s.bins[s.position(idx)] != 0 {
			s.maxIndex = idx
			return
		}
	}
}

func (s *DenseStore) At(index int) int32 {
	if s.minIndex > s.maxIndex || index < s.minIndex || index > s.maxIndex {
		return 0
	}
	return s.bins[s.position(index)]
}

func (s *DenseStore) ForEach(descending bool, f func(index int, count int32) bool) {
	if s.minIndex > s.maxIndex {
		return
	}
	if descending {
		for idx := s.maxIndex; idx >= s.minIndex; idx-- {
			if c := s.bins[s.position(idx)]; c != 0 {
				if !f(idx, c) {
					return
				}
			}
		}
		return
	}
	for idx := s.minIndex; idx <= s.maxIndex; idx++ {
		if c := s.bins[s.position(idx)]; c != 0 {
			if !f(idx, c) {
				return
			}
		}
	}
}

func (s *DenseStore) KeyAtRank(rank float64, descending bool) int {
	var cumulative int32
	lastIndex := s.minIndex
	found := false
	s.ForEach(descending, func(index int, count int32) bool {
		cumulative += count
		lastIndex = index
		if float64(cumulative) > rank {
			found = true
			return false
		}
		return true
	})
	if found {
		return lastIndex
	}
	if descending {
		return s.minIndex
	}
	return s.maxIndex
}

func (s *DenseStore) Bins() <-chan Bin {
	ch := make(chan Bin)
	go func() {
		defer close(ch)
		s.ForEach(false, func(index int, count int32) bool {
			ch <- Bin{index: index, count: count}
			return true
		})
	}()
	return ch
}

func (s *DenseStore) Copy() Store {
	binsCopy := make([]int32, len(s.bins))
	copy(binsCopy, s.bins)
	return &DenseStore{
		bins:       binsCopy,
		count:      s.count,
		numPresent: s.numPresent,
		minIndex:   s.minIndex,
		maxIndex:   s.maxIndex,
		offset:     s.offset,
		maxNumBins: s.maxNumBins,
		policy:     s.policy,
	}
}

func (s *DenseStore) IsEmpty() bool {
	return s.count == 0
}

func (s *DenseStore) MinIndex() (int, error) {
	if s.IsEmpty() {
		return 0, errors.New("MinIndex of empty store is undefined")
	}
	return s.minIndex, nil
}

func (s *DenseStore) MaxIndex() (int, error) {
	if s.IsEmpty() {
		return 0, errors.New("MaxIndex of empty store is undefined")
	}
	return s.maxIndex, nil
}

func (s *DenseStore) TotalCount() int32 {
	return s.count
}

func (s *DenseStore) MergeWith(other Store) {
	if other.IsEmpty() {
		return
	}
	other.ForEach(false, func(index int, count int32) bool {
		s.AddWithCount(index, count)
		return true
	})
}

func (s *DenseStore) MaxNumBins() int {
	return s.maxNumBins
}
