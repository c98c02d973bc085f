// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2021 GraphMetrics for modifications

package store

import (
	"github.com/sirupsen/logrus"
)

// CollapsePolicy selects which end of the index range is folded first when
// a store exceeds its bucket cap. The default, CollapseLowest, keeps
// high-quantile accuracy for heavy-tailed distributions at the expense of
// the low tail; CollapseHighest is its mirror image.
type CollapsePolicy int

const (
	CollapseLowest CollapsePolicy = iota
	CollapseHighest
)

func (p CollapsePolicy) String() string {
	if p == CollapseHighest {
		return "collapse_highest"
	}
	return "collapse_lowest"
}

// collapseLogger is shared by DenseStore and SparseStore to emit a single
// Debug-level event per collapse step. Collapse is never an error (spec.md
// Section 7): it is a silent capacity event whose only observable effect is
// widened relative error in the collapsed region, so this is purely
// informational and defaults to logrus's standard (silent-unless-configured)
// logger.
var collapseLogger = logrus.StandardLogger()

// SetCollapseLogger overrides the logger used to report collapse events.
// Passing nil restores the package default.
func SetCollapseLogger(l *logrus.Logger) {
	if l == nil {
		collapseLogger = logrus.StandardLogger()
		return
	}
	collapseLogger = l
}

func logCollapse(policy CollapsePolicy, collapsedIndex, remainingBuckets int) {
	collapseLogger.WithFields(logrus.Fields{
		"policy":            policy.String(),
		"collapsed_index":   collapsedIndex,
		"remaining_buckets": remainingBuckets,
	}).Debug("ddsketch: bucket store collapsed")
}
