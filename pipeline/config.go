// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"fmt"
	"runtime"

	"github.com/poiesic/docstream/fallback"
	"github.com/poiesic/docstream/govern"
)

// Config holds the tunables of a pipeline run.
type Config struct {
	// InputDir is the directory scanned for work items.
	InputDir string

	// StreamBatchSize is the nominal number of items per outer batch.
	// The effective size can shrink under memory pressure.
	StreamBatchSize int

	// BatchInsertSize is the downstream commit chunk size, independent
	// of the outer batch size so commits bound memory on their own.
	BatchInsertSize int

	// MaxWorkers bounds the worker pool fanning items through the
	// router within one batch.
	MaxWorkers int

	// MaxMemoryPercent is the governor's throttle threshold.
	MaxMemoryPercent float64

	// MemoryCheckStride is how many items are processed between
	// intra-batch governor consultations. Zero disables them.
	MemoryCheckStride int

	// MaxConsecutiveThrottles is how many consecutive batches may end
	// under unrelieved memory pressure before the run turns fatal.
	MaxConsecutiveThrottles int

	// CommitRetry bounds commit and embedding retries per chunk.
	CommitRetry fallback.RetryPolicy

	// Resume controls whether a persisted checkpoint is honored.
	// When false any existing checkpoint is cleared and the run starts
	// from scratch.
	Resume bool

	// ForceRestart discards a corrupt checkpoint instead of failing.
	// The recovery decision is logged; it is never implicit.
	ForceRestart bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithInputDir sets the directory scanned for work items.
func WithInputDir(dir string) ConfigOption {
	return func(c *Config) {
		c.InputDir = dir
	}
}

// WithStreamBatchSize sets the nominal outer batch size.
func WithStreamBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.StreamBatchSize = n
	}
}

// WithBatchInsertSize sets the downstream commit chunk size.
func WithBatchInsertSize(n int) ConfigOption {
	return func(c *Config) {
		c.BatchInsertSize = n
	}
}

// WithMaxWorkers sets the per-batch worker pool size.
func WithMaxWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.MaxWorkers = n
	}
}

// WithMaxMemoryPercent sets the governor's throttle threshold.
func WithMaxMemoryPercent(pct float64) ConfigOption {
	return func(c *Config) {
		c.MaxMemoryPercent = pct
	}
}

// WithMemoryCheckStride sets the intra-batch governor stride.
func WithMemoryCheckStride(n int) ConfigOption {
	return func(c *Config) {
		c.MemoryCheckStride = n
	}
}

// WithMaxConsecutiveThrottles sets the fatal-pressure escalation bound.
func WithMaxConsecutiveThrottles(n int) ConfigOption {
	return func(c *Config) {
		c.MaxConsecutiveThrottles = n
	}
}

// WithCommitRetry sets the commit retry policy.
func WithCommitRetry(policy fallback.RetryPolicy) ConfigOption {
	return func(c *Config) {
		c.CommitRetry = policy
	}
}

// WithResume toggles checkpoint-based resume.
func WithResume(resume bool) ConfigOption {
	return func(c *Config) {
		c.Resume = resume
	}
}

// WithForceRestart discards a corrupt checkpoint instead of failing.
func WithForceRestart(force bool) ConfigOption {
	return func(c *Config) {
		c.ForceRestart = force
	}
}

// DefaultConfig returns a Config with defaults sized for a single-host
// ingestion run.
func DefaultConfig() *Config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return &Config{
		StreamBatchSize:         50,
		BatchInsertSize:         25,
		MaxWorkers:              workers,
		MaxMemoryPercent:        govern.DefaultMaxPercent,
		MemoryCheckStride:       10,
		MaxConsecutiveThrottles: 3,
		CommitRetry:             fallback.DefaultRetryPolicy(),
		Resume:                  true,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: InputDir is required", ErrInvalidConfig)
	}
	if c.StreamBatchSize < 1 {
		return fmt.Errorf("%w: StreamBatchSize must be positive", ErrInvalidConfig)
	}
	if c.BatchInsertSize < 1 {
		return fmt.Errorf("%w: BatchInsertSize must be positive", ErrInvalidConfig)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: MaxWorkers must be positive", ErrInvalidConfig)
	}
	if c.MaxMemoryPercent <= 0 || c.MaxMemoryPercent > 100 {
		return fmt.Errorf("%w: MaxMemoryPercent must be within (0, 100]", ErrInvalidConfig)
	}
	if c.MemoryCheckStride < 0 {
		return fmt.Errorf("%w: MemoryCheckStride must not be negative", ErrInvalidConfig)
	}
	if c.MaxConsecutiveThrottles < 1 {
		return fmt.Errorf("%w: MaxConsecutiveThrottles must be positive", ErrInvalidConfig)
	}
	if err := c.CommitRetry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
