// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2021 GraphMetrics for modifications

package store

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparseStoreAddAndTotalCount(t *testing.T) {
	s := NewSparseStore()
	s.Add(1000000)
	s.AddWithCount(-1000000, 2)

	assert.Equal(t, int32(3), s.TotalCount())
	minIndex, err := s.MinIndex()
	assert.NoError(t, err)
	assert.Equal(t, -1000000, minIndex)
	maxIndex, err := s.MaxIndex()
	assert.NoError(t, err)
	assert.Equal(t, 1000000, maxIndex)
}

func TestSparseStoreRemoveRederivesExtremes(t *testing.T) {
	s := NewSparseStore()
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

func TestSparseStoreEmptyAfterFullRemoval(t *testing.T) {
	s := NewSparseStore()
	s.Add(3)
	s.Remove(3)

	assert.True(t, s.IsEmpty())
	_, err := s.MinIndex()
	assert.Error(t, err)
}

func TestSparseStoreCollapsingLowestRespectsCap(t *testing.T) {
	s := NewCollapsingLowestSparseStore(4)
	var total int32
	for i := 0; i < 100; i++ {
		s.AddWithCount(i*37%5000, 1)
		total++
	}

	assert.LessOrEqual(t, len(s.bins), 4)
	assert.Equal(t, total, s.TotalCount())
}

func TestSparseStoreCollapsingHighestKeepsLowIndices(t *testing.T) {
	s := NewCollapsingHighestSparseStore(4)
	for i := 0; i < 50; i++ {
		s.Add(i)
	}

	minIndex, err := s.MinIndex()
	assert.NoError(t, err)
	assert.Equal(t, 0, minIndex)
}

func TestSparseStoreKeyAtRankAscendingAndDescending(t *testing.T) {
	s := NewSparseStore()
	for _, idx := range []int{1, 2, 2, 3} {
		s.Add(idx)
	}

	assert.Equal(t, 1, s.KeyAtRank(0, false))
	assert.Equal(t, 3, s.KeyAtRank(0, true))
}

func TestSparseStoreForEachVisitsInOrder(t *testing.T) {
	s := NewSparseStore()
	for _, idx := range []int{5, -3, 1} {
		s.Add(idx)
	}

	var seen []int
	s.ForEach(false, func(index int, count int32) bool {
		seen = append(seen, index)
		return true
	})
	assert.Equal(t, []int{-3, 1, 5}, seen)

	seen = nil
	s.ForEach(true, func(index int, count int32) bool {
		seen = append(seen, index)
		return true
	})
	assert.Equal(t, []int{5, 1, -3}, seen)
}

func TestSparseStoreMergeConservesCount(t *testing.T) {
	a := NewSparseStore()
	b := NewSparseStore()
	r := rand.New(rand.NewSource(2))
	var total int32
	for i := 0; i < 200; i++ {
		a.Add(r.Intn(400) - 200)
		total++
	}
	for i := 0; i < 200; i++ {
		b.Add(r.Intn(400) - 200)
		total++
	}

	a.MergeWith(b)
	assert.Equal(t, total, a.TotalCount())
}

func TestSparseStoreCopyIsIndependent(t *testing.T) {
	s := NewSparseStore()
	s.Add(3)
	cp := s.Copy()
	s.Add(3)

	assert.Equal(t, int32(1), cp.TotalCount())
	assert.Equal(t, int32(2), s.TotalCount())
}
