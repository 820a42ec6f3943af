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


package govern

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"
)

const (
	mib = 1024 * 1024

	// DefaultMaxPercent is the memory throttle threshold used when none
	// is configured.
	DefaultMaxPercent = 80.0
)

// MemoryGovernor samples memory usage and signals the orchestrator when
// usage crosses the configured threshold. It only ever signals: the
// decision to treat persistent pressure as fatal belongs to the
// orchestrator, never to the governor.
type MemoryGovernor struct {
	sampler       Sampler
	maxPercent    float64
	pauseInterval time.Duration
	maxPause      time.Duration
	logger        *slog.Logger
}

// Option configures a MemoryGovernor.
type Option func(*MemoryGovernor)

// WithSampler substitutes the memory sampler. Default is the gopsutil
// system sampler.
func WithSampler(s Sampler) Option {
	return func(g *MemoryGovernor) {
		g.sampler = s
	}
}

// WithPauseInterval sets the re-sample interval inside AwaitRelief.
// Default is 2s.
func WithPauseInterval(d time.Duration) Option {
	return func(g *MemoryGovernor) {
		g.pauseInterval = d
	}
}

// WithMaxPause bounds the total wait inside AwaitRelief. Default is 30s.
func WithMaxPause(d time.Duration) Option {
	return func(g *MemoryGovernor) {
		g.maxPause = d
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *MemoryGovernor) {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
	}
}

// New creates a governor that throttles once system memory usage
// reaches maxPercent. maxPercent must be within (0, 100].
func New(maxPercent float64, opts ...Option) (*MemoryGovernor, error) {
	if maxPercent <= 0 || maxPercent > 100 {
		return nil, ErrInvalidMaxPercent
	}

	g := &MemoryGovernor{
		maxPercent:    maxPercent,
		pauseInterval: 2 * time.Second,
		maxPause:      30 * time.Second,
		logger:        slog.Default().With("component", "govern"),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.sampler == nil {
		sampler, err := NewSystemSampler()
		if err != nil {
			return nil, err
		}
		g.sampler = sampler
	}

	return g, nil
}

// Sample returns the currently observed usage fraction of system
// memory, in the range 0..1. Sampling errors are logged and reported
// as zero usage so a broken sampler degrades to an unthrottled run
// instead of stalling it.
func (g *MemoryGovernor) Sample() float64 {
	usage, err := g.sampler.Sample()
	if err != nil {
		g.logger.Warn("memory sampling failed", "err", err)
		return 0
	}
	return usage.SystemPercent / 100.0
}

// ShouldThrottle reports whether usage has reached the configured
// threshold.
func (g *MemoryGovernor) ShouldThrottle() bool {
	usage, err := g.sampler.Sample()
	if err != nil {
		g.logger.Warn("memory sampling failed", "err", err)
		return false
	}

	if usage.SystemPercent >= g.maxPercent {
		g.logger.Warn("high memory usage",
			"systemPercent", usage.SystemPercent,
			"maxPercent", g.maxPercent,
			"rssMiB", usage.ProcessRSS/mib)
		return true
	}
	return false
}

// Reclaim forces an immediate reclamation pass: a full GC cycle plus
// returning freed pages to the OS.
func (g *MemoryGovernor) Reclaim() {
	g.logger.Info("running memory reclamation")
	runtime.GC()
	debug.FreeOSMemory()
	g.LogUsage("after reclamation")
}

// AwaitRelief pauses and re-samples until usage drops below the
// threshold, the bounded wait elapses, or ctx is canceled. Returns
// ErrPressurePersists when the wait elapses with usage still critical;
// the caller decides whether that becomes fatal.
func (g *MemoryGovernor) AwaitRelief(ctx context.Context) error {
	deadline := time.Now().Add(g.maxPause)

	for {
		if !g.ShouldThrottle() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrPressurePersists
		}

		g.logger.Info("memory pressure, pausing", "interval", g.pauseInterval)
		timer := time.NewTimer(g.pauseInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// LogUsage logs current memory usage with an optional context label.
func (g *MemoryGovernor) LogUsage(label string) {
	usage, err := g.sampler.Sample()
	if err != nil {
		g.logger.Warn("memory sampling failed", "err", err)
		return
	}
	g.logger.Info("memory usage",
		"context", label,
		"systemPercent", usage.SystemPercent,
		"rssMiB", usage.ProcessRSS/mib,
		"availableMiB", usage.AvailableBytes/mib)
}
