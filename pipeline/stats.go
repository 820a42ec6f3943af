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
	"log/slog"
	"sync"
	"time"
)

// ItemFailure records one work item that exhausted the provider chain.
// Failures ride a side channel in the stats; they never abort a batch.
type ItemFailure struct {
	Path string
	Err  error
}

// Stats aggregates counters across a run. Safe for concurrent updates
// from the worker pool.
type Stats struct {
	mu sync.Mutex

	Discovered       int
	Processed        int
	Succeeded        int
	Failed           int
	SkippedDuplicate int
	SkippedResume    int
	BelowThreshold   int
	ThrottleEvents   int
	BatchesCompleted int

	CacheHits   uint64
	CacheMisses uint64

	ProviderUsage map[string]int
	Failures      []ItemFailure

	StartedAt  time.Time
	FinishedAt time.Time
}

func newStats() *Stats {
	return &Stats{
		ProviderUsage: make(map[string]int),
		StartedAt:     time.Now(),
	}
}

func (s *Stats) recordSuccess(providerName string, belowThreshold, fromCache bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Succeeded++
	if belowThreshold {
		s.BelowThreshold++
	}
	if fromCache {
		s.ProviderUsage["cache"]++
	} else {
		s.ProviderUsage[providerName]++
	}
}

func (s *Stats) recordFailure(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	s.Failed++
	s.Failures = append(s.Failures, ItemFailure{Path: path, Err: err})
}

func (s *Stats) recordThrottle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ThrottleEvents++
}

func (s *Stats) recordBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BatchesCompleted++
}

// CacheHitRate returns the fraction of router lookups served from
// cache, in the range 0..1.
func (s *Stats) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Report logs the final run summary.
func (s *Stats) Report(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Info("run summary",
		"discovered", s.Discovered,
		"processed", s.Processed,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"belowThreshold", s.BelowThreshold,
		"skippedDuplicates", s.SkippedDuplicate,
		"skippedResume", s.SkippedResume,
		"batches", s.BatchesCompleted,
		"throttleEvents", s.ThrottleEvents,
		"cacheHitRate", s.CacheHitRate(),
		"duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))

	for name, count := range s.ProviderUsage {
		logger.Info("provider usage", "provider", name, "items", count)
	}
	for _, f := range s.Failures {
		logger.Warn("failed item", "path", f.Path, "err", f.Err)
	}
}
