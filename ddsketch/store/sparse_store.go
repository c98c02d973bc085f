// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2020 Datadog, Inc. for original work
// Copyright 2021 GraphMetrics for modifications

package store

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// keyListPool pools the scratch slice used to sort present keys for ordered
// traversal, the same way DataDog's pkg/quantile stores pool their bin
// lists to avoid an allocation per merge/collapse.
var keyListPool = sync.Pool{
	New: func() interface{} { return make([]int, 0, 64) },
}

func getKeyList() []int {
	return keyListPool.Get().([]int)[:0]
}

func putKeyList(keys []int) {
	keyListPool.Put(keys) //nolint:staticcheck // reused scratch buffer, capacity is the point
}

// SparseStore is a hash-indexed bucket store, used when the workload is
// likely to produce scattered indices or when a collapse policy other than
// the fixed-cap dense store is wanted. Ordered traversal sorts the present
// keys on demand, so a quantile walk is O(B log B) in the number of present
// buckets B, acceptable because B <= maxNumBins.
type SparseStore struct {
	bins       map[int]int32
	count      int32
	minIndex   int
	maxIndex   int
	maxNumBins int
	policy     CollapsePolicy
}

func NewSparseStore() *SparseStore {
	return &SparseStore{bins: make(map[int]int32), minIndex: math.MaxInt32, maxIndex: math.MinInt32}
}

// NewCollapsingLowestSparseStore caps the store at maxNumBins, collapsing
// lowest-index buckets first once the cap would otherwise be exceeded.
func NewCollapsingLowestSparseStore(maxNumBins int) *SparseStore {
	s := NewSparseStore()
	s.maxNumBins = maxNumBins
	s.policy = CollapseLowest
	return s
}

// NewCollapsingHighestSparseStore is the mirror image, collapsing
// highest-index buckets first.
func NewCollapsingHighestSparseStore(maxNumBins int) *SparseStore {
	s := NewSparseStore()
	s.maxNumBins = maxNumBins
	s.policy = CollapseHighest
	return s
}

func (s *SparseStore) Add(index int) {
	s.AddWithCount(index, 1)
}

func (s *SparseStore) AddBin(bin Bin) {
	s.AddWithCount(bin.Index(), bin.Count())
}

func (s *SparseStore) AddWithCount(index int, count int32) {
	if count <= 0 {
		return
	}
	if index > s.maxIndex {
		s.maxIndex = index
	}
	if index < s.minIndex {
		s.minIndex = index
	}
	s.bins[index] += count
	s.count += count
	if s.maxNumBins > 0 && len(s.bins) > s.maxNumBins {
		s.collapse()
	}
}

func (s *SparseStore) collapse() {
	for len(s.bins) > s.maxNumBins {
		if s.policy == CollapseHighest {
			s.collapseOneHigh()
		} else {
			s.collapseOneLow()
		}
	}
}

func (s *SparseStore) collapseOneLow() {
	keys := s.sortedKeys()
	defer putKeyList(keys)
	if len(keys) < 2 {
		return
	}
	low, next := keys[0], keys[1]
	s.bins[next] += s.bins[low]
	delete(s.bins, low)
	if low == s.minIndex {
		s.minIndex = next
	}
	logCollapse(CollapseLowest, low, len(s.bins))
}

func (s *SparseStore) collapseOneHigh() {
	keys := s.sortedKeys()
	defer putKeyList(keys)
	n := len(keys)
	if n < 2 {
		return
	}
	high, prev := keys[n-1], keys[n-2]
	s.bins[prev] += s.bins[high]
	delete(s.bins, high)
	if high == s.maxIndex {
		s.maxIndex = prev
	}
	logCollapse(CollapseHighest, high, len(s.bins))
}

func (s *SparseStore) sortedKeys() []int {
	keys := getKeyList()
	for k := range s.bins {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (s *SparseStore) Remove(index int) {
	s.RemoveWithCount(index, 1)
}

func (s *SparseStore) RemoveWithCount(index int, count int32) {
	if count <= 0 {
		return
	}
	c, ok := s.bins[index]
	if !ok {
		return
	}
	removed := count
	if removed > c {
		removed = c
	}
	c -= removed
	s.count -= removed
	if c > 0 {
		s.bins[index] = c
		return
	}
	delete(s.bins, index)
	if len(s.bins) == 0 {
		s.minIndex, s.maxIndex = math.MaxInt32, math.MinInt32
		return
	}
	if index == s.minIndex {
		s.minIndex = s.recomputeMin()
	}
	if index == s.maxIndex {
		s.maxIndex = s.recomputeMax()
	}
}

func (s *SparseStore) recomputeMin() int {
	min := math.MaxInt32
	for k := range s.bins {
		if k < min {
			min = k
		}
	}
	return min
}

func (s *SparseStore) recomputeMax() int {
	max := math.MinInt32
	for k := range s.bins {
		if k > max {
			max = k
		}
	}
	return max
}

func (s *SparseStore) At(index int) int32 {
	return s.bins[index]
}

func (s *SparseStore) ForEach(descending bool, f func(index int, count int32) bool) {
	keys := s.sortedKeys()
	defer putKeyList(keys)
	if descending {
		for i := len(keys) - 1; i >= 0; i-- {
			if !f(keys[i], s.bins[keys[i]]) {
				return
			}
		}
		return
	}
	for _, k := range keys {
		if !f(k, s.bins[k]) {
			return
		}
	}
}

func (s *SparseStore) KeyAtRank(rank float64, descending bool) int {
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

func (s *SparseStore) Bins() <-chan Bin {
	ch := make(chan Bin)
	go func() {
		defer close(ch)
		for k, v := range s.bins {
			ch <- Bin{index: k, count: v}
		}
	}()
	return ch
}

func (s *SparseStore) Copy() Store {
	bins := make(map[int]int32, len(s.bins))
	for k, v := range s.bins {
		bins[k] = v
	}
	return &SparseStore{
		bins:       bins,
		count:      s.count,
		minIndex:   s.minIndex,
		maxIndex:   s.maxIndex,
		maxNumBins: s.maxNumBins,
		policy:     s.policy,
	}
}

func (s *SparseStore) IsEmpty() bool {
	return s.count == 0
}

func (s *SparseStore) MaxIndex() (int, error) {
	if s.IsEmpty() {
		return 0, errors.New("MaxIndex of empty store is undefined")
	}
	return s.maxIndex, nil
}

func (s *SparseStore) MinIndex() (int, error) {
	if s.IsEmpty() {
		return 0, errors.New("MinIndex of empty store is undefined")
	}
	return s.minIndex, nil
}

func (s *SparseStore) TotalCount() int32 {
	return s.count
}

func (s *SparseStore) MergeWith(other Store) {
	if other.IsEmpty() {
		return
	}
	other.ForEach(false, func(index int, count int32) bool {
		s.AddWithCount(index, count)
		return true
	})
}

func (s *SparseStore) MaxNumBins() int {
	return s.maxNumBins
}
