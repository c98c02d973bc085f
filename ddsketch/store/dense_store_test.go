// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2021 GraphMetrics for modifications

package store

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenseStoreAddAndTotalCount(t *testing.T) {
	s := NewUnboundedDenseStore()
	s.Add(10)
	s.AddWithCount(20, 3)
	s.Add(-5)

	assert.Equal(t, int32(5), s.TotalCount())
	minIndex, err := s.MinIndex()
	assert.NoError(t, err)
	assert.Equal(t, -5, minIndex)
	maxIndex, err := s.MaxIndex()
	assert.NoError(t, err)
	assert.Equal(t, 20, maxIndex)
}

func TestDenseStoreEmptyIndexErrors(t *testing.T) {
	s := NewUnboundedDenseStore()
	_, err := s.MinIndex()
	assert.Error(t, err)
	_, err = s.MaxIndex()
	assert.Error(t, err)
}

func TestDenseStoreRemoveRederivesExtremes(t *testing.T) {
	s := NewUnboundedDenseStore()
	s.Add(1)
	s.Add(5)
	s.Add(9)

	s.Remove(9)
	maxIndex, err := s.MaxIndex()
	assert.NoError(t, err)
	assert.Equal(t, 5, maxIndex)

	s.Remove(1)
	minIndex, err := s.MinIndex()
	assert.NoError(t, err)
	assert.Equal(t, 5, minIndex)
}

func TestDenseStoreCollapsingLowestRespectsCap(t *testing.T) {
	s := NewCollapsingLowestDenseStore(4)
	totalAdded := int32(0)
	for i := 0; i < 100; i++ {
		s.AddWithCount(i, 1)
		totalAdded++
	}

	assert.LessOrEqual(t, countPresent(s), 4)
	assert.Equal(t, totalAdded, s.TotalCount())
}

func TestDenseStoreCollapsingLowestPreservesBucketIdentity(t *testing.T) {
	s := NewCollapsingLowestDenseStore(4)
	for i := 0; i <= 4; i++ {
		s.Add(i)
	}

	got := map[int]int32{}
	s.ForEach(false, func(index int, count int32) bool {
		got[index] = count
		return true
	})
	assert.Equal(t, map[int]int32{1: 2, 2: 1, 3: 1, 4: 1}, got)
	assert.Equal(t, int32(5), s.TotalCount())
}

func TestDenseStoreCollapsingHighestPreservesBucketIdentity(t *testing.T) {
	s := NewCollapsingHighestDenseStore(4)
	for i := 4; i >= 0; i-- {
		s.Add(i)
	}

	got := map[int]int32{}
	s.ForEach(false, func(index int, count int32) bool {
		got[index] = count
		return true
	})
	assert.Equal(t, map[int]int32{0: 1, 1: 1, 2: 1, 3: 2}, got)
	assert.Equal(t, int32(5), s.TotalCount())
}

func TestDenseStoreCollapsingHighestKeepsLowIndices(t *testing.T) {
	s := NewCollapsingHighestDenseStore(4)
	for i := 0; i < 100; i++ {
		s.Add(i)
	}

	minIndex, err := s.MinIndex()
	assert.NoError(t, err)
	assert.Equal(t, 0, minIndex)
	assert.Equal(t, int32(100), s.TotalCount())
}

func TestDenseStoreKeyAtRankAscendingAndDescending(t *testing.T) {
	s := NewUnboundedDenseStore()
	for _, idx := range []int{1, 2, 2, 3} {
		s.Add(idx)
	}

	assert.Equal(t, 1, s.KeyAtRank(0, false))
	assert.Equal(t, 3, s.KeyAtRank(0, true))
}

func TestDenseStoreMergeConservesCount(t *testing.T) {
	a := NewUnboundedDenseStore()
	b := NewUnboundedDenseStore()
	r := rand.New(rand.NewSource(1))
	var total int32
	for i := 0; i < 200; i++ {
		idx := r.Intn(400) - 200
		a.Add(idx)
		total++
	}
	for i := 0; i < 200; i++ {
		idx := r.Intn(400) - 200
		b.Add(idx)
		total++
	}

	a.MergeWith(b)
	assert.Equal(t, total, a.TotalCount())
}

func TestDenseStoreCopyIsIndependent(t *testing.T) {
	s := NewUnboundedDenseStore()
	s.Add(3)
	cp := s.Copy()
	s.Add(3)

	assert.Equal(t, int32(1), cp.TotalCount())
	assert.Equal(t, int32(2), s.TotalCount())
}

func countPresent(s *DenseStore) int {
	n := 0
	s.ForEach(false, func(index int, count int32) bool {
		n++
		return true
	})
	return n
}
