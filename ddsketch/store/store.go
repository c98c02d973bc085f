// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2020 Datadog, Inc. for original work
// Copyright 2021 GraphMetrics for modifications

package store

// Store is an ordered mapping from bucket index to nonnegative count. It
// supports the add/remove/point-lookup/ordered-traversal/merge contract of
// spec.md Section 4.2, plus a bounded bucket cap enforced by a collapse
// policy on the implementations that have one (DenseStore, SparseStore).
type Store interface {
	// Add increments the count of index by 1.
	Add(index int)
	// AddWithCount increments the count of index by count. A non-positive
	// count is a no-op.
	AddWithCount(index int, count int32)
	// AddBin is AddWithCount applied to an existing Bin.
	AddBin(bin Bin)
	// Remove decrements the count of index by 1. Removing from an absent
	// bucket is a no-op.
	Remove(index int)
	// RemoveWithCount decrements the count of index by count, floored at
	// zero. A non-positive count is a no-op.
	RemoveWithCount(index int, count int32)
	// At returns the count currently stored at index, or 0 if absent.
	At(index int) int32
	// KeyAtRank walks the store in ascending order (or descending, if
	// descending is true) accumulating counts, and returns the index at
	// which the cumulative count first exceeds rank.
	KeyAtRank(rank float64, descending bool) int
	// ForEach visits every present bucket in ascending order (or
	// descending, if descending is true), stopping early if f returns
	// false.
	ForEach(descending bool, f func(index int, count int32) bool)
	// Bins drains every present bucket on a channel, closing it when done.
	// The order in which buckets are sent depends on the implementation.
	Bins() <-chan Bin
	// Copy returns a deep copy that shares no memory with the receiver.
	Copy() Store
	// IsEmpty reports whether the store has zero total count.
	IsEmpty() bool
	// MinIndex returns the lowest present bucket index, or an error if
	// the store is empty.
	MinIndex() (int, error)
	// MaxIndex returns the highest present bucket index, or an error if
	// the store is empty.
	MaxIndex() (int, error)
	// TotalCount returns the sum of counts over all present buckets.
	TotalCount() int32
	// MergeWith folds other's buckets into the receiver. other is read,
	// never mutated or aliased.
	MergeWith(other Store)
	// MaxNumBins returns the store's bucket cap, or 0 if uncapped.
	MaxNumBins() int
}
