// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2020 Datadog, Inc. for original work
// Copyright 2021 GraphMetrics for modifications

package ddsketch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"

	"github.com/graphmetrics/ddsketch-go/dataset"
)

const testRelativeAccuracy = 0.01

func evaluateSketchAccuracy(t *testing.T, s *DDSketch, d *dataset.Dataset, relativeAccuracy float64) {
	for _, q := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99, 1} {
		expected := d.LowerQuantile(q)
		actual, err := s.GetValueAtQuantile(q)
		assert.NoError(t, err)
		if expected == 0 {
			assert.InDelta(t, 0, actual, 1e-9)
			continue
		}
		assert.LessOrEqual(t, math.Abs(expected-actual)/math.Abs(expected), relativeAccuracy+1e-9)
	}
}

func TestInsertAndQuantileAccuracy(t *testing.T) {
	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)
	d := dataset.NewDataset()

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		v := math.Exp(r.NormFloat64() * 5)
		assert.NoError(t, s.Insert(v))
		d.Add(v)
	}

	evaluateSketchAccuracy(t, s, d, testRelativeAccuracy)
}

func TestNegativeAndZeroValues(t *testing.T) {
	cfg, err := NewConfig(WithRelativeAccuracy(testRelativeAccuracy), WithNegatives(true), WithMaxBuckets(0))
	assert.NoError(t, err)
	s, err := NewDDSketchFromConfig(cfg)
	assert.NoError(t, err)
	d := dataset.NewDataset()

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		v := r.NormFloat64() * math.Exp(r.Float64()*10)
		assert.NoError(t, s.Insert(v))
		d.Add(v)
	}
	assert.NoError(t, s.Insert(0))
	d.Add(0)

	evaluateSketchAccuracy(t, s, d, testRelativeAccuracy)
}

// TestCappedCollapsingStoreQuantileAccuracy exercises the default
// bucket_strategy=fixed_dense + CollapseLowest path with a small bucket
// cap, the scenario TestInsertAndQuantileAccuracy (unbounded) never
// touches: inserting ascending values forces repeated low-end collapses,
// and the high quantile must still land close to the true value since
// CollapseLowest frees room at the bottom rather than the top.
func TestCappedCollapsingStoreQuantileAccuracy(t *testing.T) {
	cfg, err := NewConfig(WithRelativeAccuracy(0.01), WithMaxBuckets(16))
	assert.NoError(t, err)
	s, err := NewDDSketchFromConfig(cfg)
	assert.NoError(t, err)

	for i := 1; i <= 1000; i++ {
		assert.NoError(t, s.Insert(float64(i)))
	}

	actual, err := s.GetValueAtQuantile(0.99)
	assert.NoError(t, err)
	assert.LessOrEqual(t, math.Abs(actual-990)/990, 0.01)
}

func TestInsertRejectsNegativeValueWithoutSupport(t *testing.T) {
	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)

	err = s.Insert(-1)
	assert.Error(t, err)
	assert.True(t, errIsKind(err, InvalidValue))
}

func TestQuantileOutOfRangeErrors(t *testing.T) {
	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)
	assert.NoError(t, s.Insert(1))

	_, err = s.GetValueAtQuantile(-0.1)
	assert.Error(t, err)
	assert.True(t, errIsKind(err, InvalidQuantile))

	_, err = s.GetValueAtQuantile(1.1)
	assert.Error(t, err)
}

func TestEmptySketchErrors(t *testing.T) {
	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)

	_, err = s.GetValueAtQuantile(0.5)
	assert.Error(t, err)
	assert.True(t, errIsKind(err, EmptySketch))

	_, err = s.GetMaxValue()
	assert.Error(t, err)
	_, err = s.GetMinValue()
	assert.Error(t, err)
}

func TestDeleteReversesInsert(t *testing.T) {
	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)

	assert.NoError(t, s.InsertWithCount(4, 10))
	assert.NoError(t, s.DeleteWithCount(4, 3))

	assert.Equal(t, int32(7), s.GetCount())
}

func TestMergeRejectsDifferentMappings(t *testing.T) {
	a, err := LogUnboundedDenseDDSketch(0.01)
	assert.NoError(t, err)
	b, err := LogUnboundedDenseDDSketch(0.02)
	assert.NoError(t, err)

	assert.Error(t, a.Merge(b))
}

func TestMergeRejectsMismatchedNegativeSupport(t *testing.T) {
	a, err := LogUnboundedDenseDDSketch(0.01)
	assert.NoError(t, err)
	cfg, err := NewConfig(WithRelativeAccuracy(0.01), WithNegatives(true))
	assert.NoError(t, err)
	b, err := NewDDSketchFromConfig(cfg)
	assert.NoError(t, err)

	assert.Error(t, a.Merge(b))
}

// TestMergeEquivalentToSingleSketch checks that splitting a stream across
// two sketches and merging them produces the same bin distribution as
// inserting every value into one sketch, using go-cmp to compare the
// collected (index, count) pairs rather than just summary statistics.
func TestMergeEquivalentToSingleSketch(t *testing.T) {
	type bin struct {
		Index int
		Count int32
	}
	collect := func(s *DDSketch) []bin {
		var bins []bin
		for b := range s.Bins() {
			bins = append(bins, bin{Index: b.Index(), Count: b.Count()})
		}
		return bins
	}

	whole, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)
	left, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)
	right, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)

	r := rand.New(rand.NewSource(99))
	for i := 0; i < 1000; i++ {
		v := math.Exp(r.NormFloat64() * 3)
		assert.NoError(t, whole.Insert(v))
		if i%2 == 0 {
			assert.NoError(t, left.Insert(v))
		} else {
			assert.NoError(t, right.Insert(v))
		}
	}
	assert.NoError(t, left.Merge(right))

	wholeBins, mergedBins := collect(whole), collect(left)
	if diff := cmp.Diff(wholeBins, mergedBins); diff != "" {
		t.Fatalf("merged sketch diverged from single-sketch insertion (-whole +merged):\n%s", diff)
	}
}

// TestFuzzedStreamPreservesRelativeAccuracy drives insertion with
// gofuzz-generated float64 streams, exercising values the hand-written
// tests above would not think to pick, and checks the same relative
// accuracy bound against the exact dataset oracle.
func TestFuzzedStreamPreservesRelativeAccuracy(t *testing.T) {
	f := fuzz.NewWithSeed(13).NilChance(0).NumElements(500, 500)

	var raw []float64
	f.Fuzz(&raw)

	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)
	d := dataset.NewDataset()

	for _, v := range raw {
		v = math.Abs(v)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		assert.NoError(t, s.Insert(v))
		d.Add(v)
	}
	if d.Count == 0 {
		return
	}

	evaluateSketchAccuracy(t, s, d, testRelativeAccuracy)
}

func TestCopyIsIndependent(t *testing.T) {
	s, err := NewDefaultDDSketch(testRelativeAccuracy)
	assert.NoError(t, err)
	assert.NoError(t, s.Insert(1))

	cp := s.Copy()
	assert.NoError(t, s.Insert(1))

	assert.Equal(t, int32(1), cp.GetCount())
	assert.Equal(t, int32(2), s.GetCount())
}

func errIsKind(err error, kind Kind) bool {
	se, ok := err.(*SketchError)
	return ok && se.Kind == kind
}
