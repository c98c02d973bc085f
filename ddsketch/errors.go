// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2021 GraphMetrics for modifications

package ddsketch

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a SketchError so that callers can branch on failure class
// with errors.Is instead of parsing messages.
type Kind int

const (
	// InvalidConfig means a Config or Option produced an unusable
	// configuration (e.g. non-positive relative accuracy).
	InvalidConfig Kind = iota
	// InvalidValue means a value passed to Insert is outside the sketch's
	// indexable range, a negative value was given to Insert on a sketch
	// built without negative support, or a negative count was passed to
	// Insert/Delete.
	InvalidValue
	// InvalidQuantile means a requested quantile was outside [0, 1].
	InvalidQuantile
	// EmptySketch means an operation that requires at least one inserted
	// value (GetValueAtQuantile, GetValuesAtQuantiles, GetMinValue,
	// GetMaxValue) was called on an empty sketch.
	EmptySketch
	// IncompatibleMerge means Merge was called with a sketch built from a
	// different IndexMapping, or one that differs on negative-value support.
	IncompatibleMerge
)

func (k Kind) String() string {
	switch k {
	case InvalidConfig:
		return "invalid_config"
	case InvalidValue:
		return "invalid_value"
	case InvalidQuantile:
		return "invalid_quantile"
	case EmptySketch:
		return "empty_sketch"
	case IncompatibleMerge:
		return "incompatible_merge"
	default:
		return "unknown"
	}
}

// SketchError is the uniform error type returned by every exported ddsketch
// operation that can fail. Use errors.Is against the sentinels below to
// classify a failure, or errors.As against *SketchError to read Kind
// directly.
type SketchError struct {
	Kind Kind
	msg  string
	Err  error
}

func (e *SketchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ddsketch: %s: %s: %v", e.Kind, e.msg, e.Err)
	}
	return fmt.Sprintf("ddsketch: %s: %s", e.Kind, e.msg)
}

func (e *SketchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidValue) etc. work by comparing Kind
// rather than pointer identity, so any SketchError of the same Kind matches
// its sentinel.
func (e *SketchError) Is(target error) bool {
	t, ok := target.(*SketchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newSketchError(kind Kind, msg string) *SketchError {
	return &SketchError{Kind: kind, msg: msg}
}

func wrapSketchError(kind Kind, msg string, cause error) *SketchError {
	return &SketchError{Kind: kind, msg: msg, Err: errors.WithStack(cause)}
}

// Sentinels for errors.Is. Every SketchError of the matching Kind satisfies
// errors.Is(err, ErrX) via SketchError.Is, regardless of its message or
// wrapped cause.
var (
	ErrInvalidConfig     = newSketchError(InvalidConfig, "")
	ErrInvalidValue      = newSketchError(InvalidValue, "")
	ErrInvalidQuantile   = newSketchError(InvalidQuantile, "")
	ErrEmptySketch       = newSketchError(EmptySketch, "")
	ErrIncompatibleMerge = newSketchError(IncompatibleMerge, "")
)
