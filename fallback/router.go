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


package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docstream/cache"
	"github.com/poiesic/docstream/core"
	"github.com/poiesic/docstream/provider"
)

// Result is the best available extraction for one work item.
type Result struct {
	// Payload is the extracted text.
	Payload string

	// Confidence is the producing provider's reported score, 0-100.
	Confidence int

	// Provider names the provider that produced the payload.
	Provider string

	// BelowThreshold is set when no provider met the acceptance
	// threshold and this is the highest-confidence candidate retained.
	BelowThreshold bool

	// FromCache is set when the result was served from the bounded
	// cache without invoking any provider.
	FromCache bool
}

// Router drives per-item processing through an ordered provider chain
// with confidence gating and retry/backoff. It is safe for concurrent
// use by the worker pool.
type Router struct {
	providers []provider.Provider
	cache     *cache.Bounded[Result]
	threshold int
	timeout   time.Duration
	retry     RetryPolicy
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithCache attaches a bounded result cache consulted by fingerprint
// before any provider is invoked. Without a cache every item is
// recomputed.
func WithCache(c *cache.Bounded[Result]) RouterOption {
	return func(r *Router) {
		r.cache = c
	}
}

// WithThreshold sets the acceptance confidence threshold (0-100).
// Default is 70.
func WithThreshold(threshold int) RouterOption {
	return func(r *Router) {
		r.threshold = threshold
	}
}

// WithTimeout sets the per-provider-call timeout. Default is 30s.
func WithTimeout(timeout time.Duration) RouterOption {
	return func(r *Router) {
		r.timeout = timeout
	}
}

// WithRetryPolicy sets the per-provider retry policy for transient
// failures.
func WithRetryPolicy(policy RetryPolicy) RouterOption {
	return func(r *Router) {
		r.retry = policy
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRouter creates a router over the given provider chain. Providers
// are tried in the order given: fast/local first, then progressively
// higher-cost. An empty chain is rejected here rather than at process
// time so the degrade-gracefully contract only ever applies when at
// least one provider exists.
func NewRouter(providers []provider.Provider, opts ...RouterOption) (*Router, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	r := &Router{
		providers: providers,
		threshold: 70,
		timeout:   30 * time.Second,
		retry:     DefaultRetryPolicy(),
		logger:    slog.Default(),
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.threshold < 0 || r.threshold > 100 {
		return nil, ErrInvalidThreshold
	}
	if err := r.retry.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Process produces the best available result for one work item.
//
// The cache is consulted by fingerprint first; a hit is returned
// immediately with its confidence treated as maximal. Otherwise each
// provider is invoked in priority order with a bounded timeout:
// a result meeting the threshold is cached and returned; a result below
// the threshold is retained as a last-resort candidate while the chain
// continues; transient failures are retried on the same provider with
// exponential backoff before escalating; permanent failures escalate
// immediately. When the chain is exhausted, the best below-threshold
// candidate is returned tagged as such, or ErrAllProvidersExhausted
// when no provider produced any result.
func (r *Router) Process(ctx context.Context, item *core.WorkItem, content []byte) (*Result, error) {
	if r.cache != nil {
		if cached, found := r.cache.Get(item.Fingerprint); found {
			cached.FromCache = true
			r.logger.Debug("cache hit", "path", item.Path, "provider", cached.Provider)
			return &cached, nil
		}
	}

	input := &provider.Input{Path: item.Path, Content: content}

	var best *Result
	var failures []error

	for _, p := range r.providers {
		outcome, err := r.attemptWithRetry(ctx, p, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("provider failed, escalating",
				"path", item.Path, "provider", p.Name(), "err", err)
			failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		result := &Result{
			Payload:    outcome.Payload,
			Confidence: outcome.Confidence,
			Provider:   p.Name(),
		}

		if outcome.Confidence >= r.threshold {
			if r.cache != nil {
				r.cache.Put(item.Fingerprint, *result)
			}
			return result, nil
		}

		r.logger.Debug("confidence below threshold, escalating",
			"path", item.Path, "provider", p.Name(),
			"confidence", outcome.Confidence, "threshold", r.threshold)

		if best == nil || outcome.Confidence > best.Confidence {
			best = result
		}
	}

	if best != nil {
		// Degraded output beats no output. The result is not cached:
		// a later run with a healthier chain may do better.
		best.BelowThreshold = true
		return best, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersExhausted, errors.Join(failures...))
}

// attemptWithRetry invokes one provider with the configured per-call
// timeout, retrying transient failures up to the policy's attempt cap
// with exponential backoff. Permanent failures skip remaining retries.
func (r *Router) attemptWithRetry(ctx context.Context, p provider.Provider, input *provider.Input) (*provider.Outcome, error) {
	var lastErr error

	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		outcome, err := p.Attempt(callCtx, input)
		cancel()

		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if provider.IsPermanent(err) {
			r.logger.Debug("permanent failure, skipping retries",
				"provider", p.Name(), "err", err)
			return nil, err
		}

		if attempt == r.retry.MaxAttempts {
			break
		}

		delay := r.retry.Delay(attempt)
		r.logger.Debug("transient failure, backing off",
			"provider", p.Name(), "attempt", attempt, "delay", delay, "err", err)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// CacheStats reports the attached cache's cumulative hits and misses.
// Both are zero when no cache is attached.
func (r *Router) CacheStats() (hits, misses uint64) {
	if r.cache == nil {
		return 0, 0
	}
	return r.cache.Stats()
}
