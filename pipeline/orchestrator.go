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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docstream/ai"
	"github.com/poiesic/docstream/checkpoint"
	"github.com/poiesic/docstream/core"
	"github.com/poiesic/docstream/fallback"
	"github.com/poiesic/docstream/govern"
	"github.com/poiesic/docstream/store"
)

// Orchestrator is the top-level driver of a run. It partitions the
// discovered items into ordered batches and drives each batch through
// extraction, embedding, and storage, checkpointing strictly after each
// commit so a crash never loses acknowledged progress.
//
// Batches run strictly in order; items within a batch fan out over a
// bounded worker pool.
type Orchestrator struct {
	cfg         *Config
	router      *fallback.Router
	embedder    ai.Embedder
	downstream  store.Store
	checkpoints *checkpoint.Store
	governor    *govern.MemoryGovernor
	logger      *slog.Logger

	mu    sync.Mutex
	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEmbedder attaches an embedding stage. Without one documents are
// committed without vectors.
func WithEmbedder(e ai.Embedder) Option {
	return func(o *Orchestrator) {
		o.embedder = e
	}
}

// WithGovernor substitutes the memory governor. Default is a governor
// built from the config's MaxMemoryPercent with the system sampler.
func WithGovernor(g *govern.MemoryGovernor) Option {
	return func(o *Orchestrator) {
		o.governor = g
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// New creates an orchestrator over the given collaborators.
func New(cfg *Config, router *fallback.Router, downstream store.Store, checkpoints *checkpoint.Store, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if router == nil {
		return nil, ErrRouterRequired
	}
	if downstream == nil {
		return nil, ErrStoreRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointsRequired
	}

	o := &Orchestrator{
		cfg:         cfg,
		router:      router,
		downstream:  downstream,
		checkpoints: checkpoints,
		logger:      slog.Default().With("component", "pipeline"),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.governor == nil {
		governor, err := govern.New(cfg.MaxMemoryPercent, govern.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		o.governor = governor
	}

	return o, nil
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("state transition", "from", prev.String(), "to", s.String())
}

// Run executes the pipeline until the input is exhausted, ctx is
// canceled, or a fatal condition occurs. Cancellation is honored at
// batch boundaries: in-flight workers finish, the current batch is
// committed and checkpointed, and the run stops cleanly.
//
// The returned Stats are valid even when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context) (*Stats, error) {
	stats := newStats()
	defer func() {
		stats.FinishedAt = time.Now()
		stats.CacheHits, stats.CacheMisses = o.router.CacheStats()
		stats.Report(o.logger)
	}()

	record, err := o.loadCheckpoint()
	if err != nil {
		o.setState(StateFailed)
		return stats, err
	}

	o.setState(StateDiscovering)
	items, err := Discover(ctx, o.cfg.InputDir, o.logger)
	if err != nil {
		o.setState(StateFailed)
		return stats, err
	}
	stats.Discovered = len(items)

	o.setState(StateScheduling)
	watermark := -1
	processed := make(map[core.Fingerprint]struct{})
	if record != nil {
		watermark = record.LastCompletedBatchIndex
		processed = record.ProcessedSet()
	}

	var pending []*core.WorkItem
	for _, item := range items {
		if item.Status == core.StatusSkippedDuplicate {
			stats.SkippedDuplicate++
			continue
		}
		if _, done := processed[item.Fingerprint]; done {
			stats.SkippedResume++
			continue
		}
		pending = append(pending, item)
	}

	plan := newPlanner(pending, o.cfg.StreamBatchSize, watermark+1)
	o.logger.Info("run scheduled",
		"pending", len(pending),
		"batchSize", o.cfg.StreamBatchSize,
		"firstBatch", watermark+1,
		"workers", o.cfg.MaxWorkers)

	pool, err := ants.NewPool(o.cfg.MaxWorkers)
	if err != nil {
		o.setState(StateFailed)
		return stats, err
	}
	defer pool.Release()

	consecutiveThrottles := 0
	for batch := plan.Next(); batch != nil; batch = plan.Next() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			o.logger.Info("canceled, stopping at batch boundary", "nextBatch", batch.Index)
			return stats, ctxErr
		}

		o.governor.LogUsage(fmt.Sprintf("batch %d start", batch.Index))

		// Everything inside the batch runs on a non-cancelable context:
		// a cancel arriving mid-batch must not discard the batch's
		// completed provider work, so processing, embedding, commit,
		// and checkpoint all finish before the boundary check above
		// stops the run. Per-call timeouts and bounded retries keep
		// that finite.
		batchCtx := context.WithoutCancel(ctx)

		o.setState(StateProcessingBatch)
		o.logger.Info("processing batch", "batch", batch.Index, "items", len(batch.Items))
		docs := o.processBatch(batchCtx, pool, batch, stats)

		if o.embedder != nil {
			o.embedDocuments(batchCtx, docs)
		}

		o.setState(StateCommitting)
		if err := o.commit(batchCtx, docs); err != nil {
			o.setState(StateFailed)
			return stats, fmt.Errorf("%w: %w", ErrCommitFailed, err)
		}

		o.setState(StateCheckpointing)
		for _, item := range batch.Items {
			processed[item.Fingerprint] = struct{}{}
		}
		rec := checkpoint.NewRecord(batch.Index, plan.TotalBatches(), processed)
		if err := o.checkpoints.Save(rec); err != nil {
			o.setState(StateFailed)
			return stats, err
		}
		stats.recordBatch()
		o.governor.LogUsage(fmt.Sprintf("batch %d end", batch.Index))

		if relieved := o.governBetweenBatches(ctx, plan, stats); !relieved {
			consecutiveThrottles++
			if consecutiveThrottles >= o.cfg.MaxConsecutiveThrottles {
				o.setState(StateFailed)
				return stats, fmt.Errorf("%w: %d consecutive batches under pressure",
					ErrPersistentMemoryPressure, consecutiveThrottles)
			}
		} else {
			consecutiveThrottles = 0
		}
	}

	o.setState(StateCompleted)
	if err := o.checkpoints.Clear(); err != nil {
		o.logger.Warn("failed to clear checkpoint after completed run", "err", err)
	}
	return stats, nil
}

// loadCheckpoint applies the resume/restart configuration. A corrupt
// record is fatal unless ForceRestart explicitly discards it; the
// recovery decision is always logged, never implicit.
func (o *Orchestrator) loadCheckpoint() (*checkpoint.Record, error) {
	if !o.cfg.Resume {
		o.logger.Info("resume disabled, clearing any existing checkpoint")
		if err := o.checkpoints.Clear(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	record, err := o.checkpoints.Load()
	if err != nil {
		if errors.Is(err, checkpoint.ErrCorrupt) && o.cfg.ForceRestart {
			o.logger.Warn("corrupt checkpoint discarded on explicit restart directive", "err", err)
			if clearErr := o.checkpoints.Clear(); clearErr != nil {
				return nil, clearErr
			}
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// processBatch fans the batch's items over the worker pool and collects
// the resulting documents. ctx is the batch's non-cancelable context,
// so in-flight items always run to completion; per-call timeouts inside
// the router keep that bounded.
func (o *Orchestrator) processBatch(ctx context.Context, pool *ants.Pool, batch *core.Batch, stats *Stats) []*core.Document {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		docs []*core.Document
	)

	for i, item := range batch.Items {
		item.Status = core.StatusInProgress
		it := item

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			doc, result, err := o.processItem(ctx, it)
			if err != nil {
				it.Status = core.StatusFailed
				stats.recordFailure(it.Path, err)
				return
			}

			it.Status = core.StatusSucceeded
			stats.recordSuccess(result.Provider, result.BelowThreshold, result.FromCache)
			mu.Lock()
			docs = append(docs, doc)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			it.Status = core.StatusFailed
			stats.recordFailure(it.Path, submitErr)
		}

		if o.cfg.MemoryCheckStride > 0 && (i+1)%o.cfg.MemoryCheckStride == 0 {
			if o.governor.ShouldThrottle() {
				stats.recordThrottle()
				o.governor.Reclaim()
			}
		}
	}
	wg.Wait()

	// Deterministic commit order regardless of worker completion order.
	slices.SortFunc(docs, func(a, b *core.Document) int {
		return strings.Compare(a.SourcePath, b.SourcePath)
	})
	return docs
}

// processItem routes one work item through the fallback chain and
// shapes the outcome into a document ready for commit.
func (o *Orchestrator) processItem(ctx context.Context, item *core.WorkItem) (*core.Document, *fallback.Result, error) {
	content, err := os.ReadFile(item.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", item.Path, err)
	}

	result, err := o.router.Process(ctx, item, content)
	if err != nil {
		return nil, nil, err
	}

	doc := &core.Document{
		Fingerprint: item.Fingerprint,
		SourcePath:  item.Path,
		Contents:    result.Payload,
		Provider:    result.Provider,
		Confidence:  result.Confidence,
		Metadata: map[string]string{
			"below_threshold": strconv.FormatBool(result.BelowThreshold),
		},
	}
	return doc, result, nil
}

// embedDocuments attaches vectors in commit-sized chunks, retrying each
// chunk on failure. A chunk that still fails after retries is committed
// without vectors rather than dropped; the payload is the durable part.
func (o *Orchestrator) embedDocuments(ctx context.Context, docs []*core.Document) {
	for chunk := range slices.Chunk(docs, o.cfg.BatchInsertSize) {
		texts := make([]string, len(chunk))
		for i, doc := range chunk {
			texts[i] = doc.Contents
		}

		var vectors [][]float32
		err := o.cfg.CommitRetry.Do(ctx, func() error {
			var embedErr error
			vectors, embedErr = o.embedder.EmbedTexts(ctx, texts)
			return embedErr
		})
		if err != nil {
			o.logger.Error("embedding failed after retries, committing without vectors",
				"chunk", len(chunk), "err", err)
			continue
		}
		if len(vectors) != len(chunk) {
			o.logger.Error("embedder returned mismatched vector count",
				"want", len(chunk), "got", len(vectors))
			continue
		}

		for i, doc := range chunk {
			doc.Vector = vectors[i]
		}
	}
}

// commit writes documents downstream in bounded chunks with retry.
// Exhausting the retries is fatal for the run: the batch must not be
// checkpointed when its results are not durable.
func (o *Orchestrator) commit(ctx context.Context, docs []*core.Document) error {
	for chunk := range slices.Chunk(docs, o.cfg.BatchInsertSize) {
		err := o.cfg.CommitRetry.Do(ctx, func() error {
			return o.downstream.CommitBatch(ctx, chunk)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// governBetweenBatches applies the escalation ladder after a batch:
// reclaim first, then shrink upcoming batches, then a bounded pause.
// Returns false when pressure persisted through all three, leaving the
// fatal-after-N-batches decision to the caller.
func (o *Orchestrator) governBetweenBatches(ctx context.Context, plan *planner, stats *Stats) bool {
	if !o.governor.ShouldThrottle() {
		return true
	}

	stats.recordThrottle()
	o.governor.Reclaim()
	if !o.governor.ShouldThrottle() {
		return true
	}

	newSize := plan.Shrink()
	o.logger.Warn("memory pressure persists after reclamation, shrinking batches", "batchSize", newSize)

	if err := o.governor.AwaitRelief(ctx); err != nil {
		if errors.Is(err, govern.ErrPressurePersists) {
			return false
		}
		// Cancellation; the batch loop stops at the next boundary.
		return true
	}
	return true
}
