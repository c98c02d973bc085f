// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License 2.0.
// Copyright 2021 GraphMetrics for modifications

package ddsketch

import (
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/graphmetrics/ddsketch-go/ddsketch/mapping"
	"github.com/graphmetrics/ddsketch-go/ddsketch/store"
)

// BucketStrategy selects which Store implementation backs a DDSketch built
// from a Config.
type BucketStrategy string

const (
	// FixedDense preallocates a DenseStore sized to the per-store bucket cap
	// (MaxBuckets, halved when negatives are enabled) and collapses
	// per CollapsePolicy once it fills up. Best when indices are expected to
	// cluster, since a present bucket costs no per-entry overhead.
	FixedDense BucketStrategy = "fixed_dense"
	// CollapsingSparse uses a SparseStore, a better fit for scattered or
	// bursty index distributions where a dense array would be mostly empty.
	CollapsingSparse BucketStrategy = "collapsing_sparse"
)

// Config is the full set of knobs needed to build a DDSketch. The zero
// value is not valid; build one with NewConfig and Options, or load one
// from YAML/env.
type Config struct {
	RelativeAccuracy float64              `yaml:"relative_accuracy" envconfig:"RELATIVE_ACCURACY"`
	Mapping          mapping.Scheme       `yaml:"mapping" envconfig:"MAPPING"`
	MaxBuckets       int                  `yaml:"max_buckets" envconfig:"MAX_BUCKETS"`
	BucketStrategy   BucketStrategy       `yaml:"bucket_strategy" envconfig:"BUCKET_STRATEGY"`
	CollapsePolicy   store.CollapsePolicy `yaml:"-" ignored:"true"`
	AllowNegative    bool                 `yaml:"allow_negative" envconfig:"ALLOW_NEGATIVE"`
}

// Option mutates a Config being built by NewConfig. An Option returns an
// error so that validation failures (e.g. WithMaxBuckets(-1)) surface at the
// call site instead of silently producing an unusable Config.
type Option func(*Config) error

// WithRelativeAccuracy sets the guaranteed relative error, e.g. 0.01 for 1%.
func WithRelativeAccuracy(accuracy float64) Option {
	return func(c *Config) error {
		if accuracy <= 0 || accuracy >= 1 {
			return wrapSketchError(InvalidConfig, "relative accuracy must be in (0, 1)", errConfigRange)
		}
		c.RelativeAccuracy = accuracy
		return nil
	}
}

// WithMappingScheme selects the IndexMapping implementation.
func WithMappingScheme(scheme mapping.Scheme) Option {
	return func(c *Config) error {
		c.Mapping = scheme
		return nil
	}
}

// WithMaxBuckets caps the number of buckets per store; the default is
// 2048. Pass zero for an unbounded store. When negative values are also
// enabled, the cap is halved per store since the positive and negative
// stores are independent - see Resolution of spec.md's bucket-budget Open
// Question in DESIGN.md.
func WithMaxBuckets(maxBuckets int) Option {
	return func(c *Config) error {
		if maxBuckets < 0 {
			return wrapSketchError(InvalidConfig, "max buckets cannot be negative", errConfigRange)
		}
		c.MaxBuckets = maxBuckets
		return nil
	}
}

// WithBucketStrategy selects the Store implementation used once MaxBuckets
// is nonzero. It has no effect on an unbounded sketch.
func WithBucketStrategy(strategy BucketStrategy) Option {
	return func(c *Config) error {
		c.BucketStrategy = strategy
		return nil
	}
}

// WithCollapsePolicy selects which end of the index range collapses first
// once a bounded store fills up.
func WithCollapsePolicy(policy store.CollapsePolicy) Option {
	return func(c *Config) error {
		c.CollapsePolicy = policy
		return nil
	}
}

// WithNegatives enables tracking of negative values via a second store.
// Zero values are counted whether or not this is set.
func WithNegatives(allow bool) Option {
	return func(c *Config) error {
		c.AllowNegative = allow
		return nil
	}
}

var errConfigRange = &SketchError{Kind: InvalidConfig, msg: "out of range"}

// NewConfig builds a Config from defaults plus the given Options, applied
// in order.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		RelativeAccuracy: 0.01,
		Mapping:          mapping.Logarithmic,
		MaxBuckets:       2048,
		BucketStrategy:   FixedDense,
		CollapsePolicy:   store.CollapseLowest,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadConfigYAML decodes a Config from YAML on top of NewConfig's defaults,
// so any field the document omits keeps its default; the result is then
// validated.
func LoadConfigYAML(data []byte) (*Config, error) {
	c, err := NewConfig()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, wrapSketchError(InvalidConfig, "cannot parse config YAML", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfigEnv decodes a Config from environment variables named
// <prefix>_RELATIVE_ACCURACY, <prefix>_MAPPING, <prefix>_MAX_BUCKETS,
// <prefix>_BUCKET_STRATEGY, <prefix>_ALLOW_NEGATIVE.
func LoadConfigEnv(prefix string) (*Config, error) {
	c, err := NewConfig()
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, wrapSketchError(InvalidConfig, "cannot parse config from environment", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.RelativeAccuracy <= 0 || c.RelativeAccuracy >= 1 {
		return wrapSketchError(InvalidConfig, "relative accuracy must be in (0, 1)", errConfigRange)
	}
	if c.MaxBuckets < 0 {
		return wrapSketchError(InvalidConfig, "max buckets cannot be negative", errConfigRange)
	}
	return nil
}

// effectiveMaxBuckets returns the per-store bucket cap, halving MaxBuckets
// when negatives are tracked so the positive and negative stores split a
// fixed total budget rather than each getting the full cap.
func (c *Config) effectiveMaxBuckets() int {
	if c.MaxBuckets == 0 {
		return 0
	}
	if c.AllowNegative {
		half := c.MaxBuckets / 2
		if half == 0 {
			half = 1
		}
		return half
	}
	return c.MaxBuckets
}

func (c *Config) newStore() store.Store {
	maxBuckets := c.effectiveMaxBuckets()
	if maxBuckets == 0 {
		return store.NewUnboundedDenseStore()
	}
	if c.BucketStrategy == CollapsingSparse {
		if c.CollapsePolicy == store.CollapseHighest {
			return store.NewCollapsingHighestSparseStore(maxBuckets)
		}
		return store.NewCollapsingLowestSparseStore(maxBuckets)
	}
	if c.CollapsePolicy == store.CollapseHighest {
		return store.NewCollapsingHighestDenseStore(maxBuckets)
	}
	return store.NewCollapsingLowestDenseStore(maxBuckets)
}
