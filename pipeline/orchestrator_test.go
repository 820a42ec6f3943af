package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docstream/ai/mock"
	"github.com/poiesic/docstream/cache"
	"github.com/poiesic/docstream/checkpoint"
	"github.com/poiesic/docstream/core"
	"github.com/poiesic/docstream/fallback"
	"github.com/poiesic/docstream/govern"
	"github.com/poiesic/docstream/provider"
	providermock "github.com/poiesic/docstream/provider/mock"
	"github.com/poiesic/docstream/store"
	storebadger "github.com/poiesic/docstream/store/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingStore wraps a real store, records committed fingerprints, and
// can be scripted to fail once a commit threshold is reached.
type trackingStore struct {
	store.Store

	mu        sync.Mutex
	committed map[core.Fingerprint]int
	failAfter int // fail commits once this many distinct docs landed; -1 disables
	onCommit  func()
}

func newTrackingStore(t *testing.T) *trackingStore {
	t.Helper()
	inner, err := storebadger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { inner.Close() })
	return &trackingStore{
		Store:     inner,
		committed: make(map[core.Fingerprint]int),
		failAfter: -1,
	}
}

func (s *trackingStore) CommitBatch(ctx context.Context, docs []*core.Document) error {
	s.mu.Lock()
	if s.failAfter >= 0 && len(s.committed) >= s.failAfter {
		s.mu.Unlock()
		return errors.New("injected store failure")
	}
	s.mu.Unlock()

	if err := s.Store.CommitBatch(ctx, docs); err != nil {
		return err
	}

	s.mu.Lock()
	for _, doc := range docs {
		s.committed[doc.Fingerprint]++
	}
	s.mu.Unlock()

	if s.onCommit != nil {
		s.onCommit()
	}
	return nil
}

func (s *trackingStore) distinct() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.committed)
}

// fixedSampler reports a constant system memory percentage.
type fixedSampler struct {
	percent float64
}

func (s fixedSampler) Sample() (govern.Usage, error) {
	return govern.Usage{SystemPercent: s.percent}, nil
}

func quietGovernor(t *testing.T, percent float64) *govern.MemoryGovernor {
	t.Helper()
	g, err := govern.New(80,
		govern.WithSampler(fixedSampler{percent: percent}),
		govern.WithPauseInterval(time.Millisecond),
		govern.WithMaxPause(5*time.Millisecond))
	require.NoError(t, err)
	return g
}

func fastRetry() fallback.RetryPolicy {
	return fallback.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

// echoProvider returns each file's own contents with the given confidence.
func echoProvider(name string, confidence int) *providermock.Provider {
	p := providermock.NewProvider(name)
	p.AttemptFunc = func(ctx context.Context, input *provider.Input) (*provider.Outcome, error) {
		return &provider.Outcome{Payload: string(input.Content), Confidence: confidence}, nil
	}
	return p
}

func newTestRouter(t *testing.T, providers ...provider.Provider) *fallback.Router {
	t.Helper()
	c, err := cache.NewBounded[fallback.Result](256)
	require.NoError(t, err)
	router, err := fallback.NewRouter(providers,
		fallback.WithCache(c),
		fallback.WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	return router
}

func writeInputFiles(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		writeFile(t, dir, fmt.Sprintf("doc-%03d.txt", i), fmt.Sprintf("document number %03d", i))
	}
}

type testRig struct {
	cfg         *Config
	inputDir    string
	workDir     string
	provider    *providermock.Provider
	router      *fallback.Router
	downstream  *trackingStore
	checkpoints *checkpoint.Store
	embedder    *mock.MockEmbedder
}

func newTestRig(t *testing.T, files int, opts ...ConfigOption) *testRig {
	t.Helper()
	inputDir := t.TempDir()
	workDir := t.TempDir()
	writeInputFiles(t, inputDir, files)

	cps, err := checkpoint.NewStore(workDir)
	require.NoError(t, err)

	p := echoProvider("echo", 90)
	base := []ConfigOption{
		WithInputDir(inputDir),
		WithStreamBatchSize(50),
		WithBatchInsertSize(50),
		WithMaxWorkers(4),
		WithCommitRetry(fastRetry()),
	}
	return &testRig{
		cfg:         NewConfig(append(base, opts...)...),
		inputDir:    inputDir,
		workDir:     workDir,
		provider:    p,
		router:      newTestRouter(t, p),
		downstream:  newTrackingStore(t),
		checkpoints: cps,
		embedder:    mock.NewMockEmbedder(),
	}
}

func (r *testRig) orchestrator(t *testing.T, g *govern.MemoryGovernor) *Orchestrator {
	t.Helper()
	o, err := New(r.cfg, r.router, r.downstream, r.checkpoints,
		WithEmbedder(r.embedder),
		WithGovernor(g))
	require.NoError(t, err)
	return o
}

func TestRunCompletes(t *testing.T) {
	rig := newTestRig(t, 7)
	o := rig.orchestrator(t, quietGovernor(t, 10))

	stats, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, o.State())

	assert.Equal(t, 7, stats.Discovered)
	assert.Equal(t, 7, stats.Processed)
	assert.Equal(t, 7, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 1, stats.BatchesCompleted)
	assert.Equal(t, 7, rig.downstream.distinct())

	// Vectors were attached by the embedder.
	ctx := context.Background()
	items, err := Discover(ctx, rig.inputDir, nil)
	require.NoError(t, err)
	doc, err := rig.downstream.Get(ctx, items[0].Fingerprint)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Vector)
	assert.Equal(t, "echo", doc.Provider)

	// A completed run leaves no checkpoint behind.
	record, err := rig.checkpoints.Load()
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRunSkipsDuplicates(t *testing.T) {
	rig := newTestRig(t, 3)
	writeFile(t, rig.inputDir, "copy.txt", "document number 000")
	o := rig.orchestrator(t, quietGovernor(t, 10))

	stats, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Discovered)
	assert.Equal(t, 1, stats.SkippedDuplicate)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, rig.downstream.distinct())
}

func TestRunResumesAfterCrash(t *testing.T) {
	// 130 items at batch size 50 partition into 50/50/30. The store is
	// scripted to fail once 100 documents landed, killing the first run
	// after batch 1's checkpoint and before batch 2 commits.
	rig := newTestRig(t, 130)
	rig.downstream.failAfter = 100
	o := rig.orchestrator(t, quietGovernor(t, 10))

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrCommitFailed)
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, 100, rig.downstream.distinct())

	record, err := rig.checkpoints.Load()
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 1, record.LastCompletedBatchIndex)
	assert.Equal(t, 3, record.TotalBatches)
	assert.Len(t, record.ProcessedFingerprints, 100)

	// Second run with a healthy store and a fresh provider: exactly the
	// 30 items of batch 2 are reprocessed, nothing else.
	rig.downstream.failAfter = -1
	p2 := echoProvider("echo", 90)
	rig.provider = p2
	rig.router = newTestRouter(t, p2)
	o2 := rig.orchestrator(t, quietGovernor(t, 10))

	stats, err := o2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, o2.State())

	assert.Equal(t, 100, stats.SkippedResume)
	assert.Equal(t, 30, stats.Processed)
	assert.Equal(t, 30, p2.CallCount())
	assert.Equal(t, 130, rig.downstream.distinct())
}

func TestRunFailsOnCorruptCheckpoint(t *testing.T) {
	rig := newTestRig(t, 3)
	writeFile(t, rig.workDir, checkpoint.FileName, "{not json")
	o := rig.orchestrator(t, quietGovernor(t, 10))

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, checkpoint.ErrCorrupt)
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, 0, rig.downstream.distinct())
}

func TestRunForceRestartDiscardsCorruptCheckpoint(t *testing.T) {
	rig := newTestRig(t, 3, WithForceRestart(true))
	writeFile(t, rig.workDir, checkpoint.FileName, "{not json")
	o := rig.orchestrator(t, quietGovernor(t, 10))

	stats, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
}

func TestRunNoResumeStartsFresh(t *testing.T) {
	rig := newTestRig(t, 3, WithResume(false))
	record := checkpoint.NewRecord(0, 1, map[core.Fingerprint]struct{}{
		core.FingerprintFromContent([]byte("document number 000")): {},
	})
	require.NoError(t, rig.checkpoints.Save(record))

	o := rig.orchestrator(t, quietGovernor(t, 10))
	stats, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SkippedResume)
	assert.Equal(t, 3, stats.Processed)
}

func TestRunStopsAtBatchBoundaryOnCancel(t *testing.T) {
	rig := newTestRig(t, 10, WithStreamBatchSize(4), WithBatchInsertSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	rig.downstream.onCommit = cancel

	o := rig.orchestrator(t, quietGovernor(t, 10))
	stats, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The first batch was fully committed and checkpointed before the
	// run stopped; nothing past the boundary ran.
	assert.Equal(t, 1, stats.BatchesCompleted)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 4, rig.downstream.distinct())

	record, err := rig.checkpoints.Load()
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 0, record.LastCompletedBatchIndex)
	assert.Len(t, record.ProcessedFingerprints, 4)
}

func TestRunFinishesBatchWhenCanceledMidBatch(t *testing.T) {
	// A cancel arriving while a provider call is in flight must not
	// discard the batch's completed work: every item of the current
	// batch still finishes, the batch commits and checkpoints, and the
	// run stops at the next boundary.
	rig := newTestRig(t, 8, WithStreamBatchSize(4), WithBatchInsertSize(4))
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	p := providermock.NewProvider("echo")
	p.AttemptFunc = func(_ context.Context, input *provider.Input) (*provider.Outcome, error) {
		once.Do(cancel)
		return &provider.Outcome{Payload: string(input.Content), Confidence: 90}, nil
	}
	rig.router = newTestRouter(t, p)

	o := rig.orchestrator(t, quietGovernor(t, 10))
	stats, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, StateFailed, o.State())

	assert.Equal(t, 1, stats.BatchesCompleted)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 4, rig.downstream.distinct())

	record, loadErr := rig.checkpoints.Load()
	require.NoError(t, loadErr)
	require.NotNil(t, record)
	assert.Equal(t, 0, record.LastCompletedBatchIndex)
	assert.Len(t, record.ProcessedFingerprints, 4)
}

func TestRunFailedItemsDoNotAbortBatch(t *testing.T) {
	rig := newTestRig(t, 4)
	failing := providermock.NewProvider("flaky")
	failing.AttemptFunc = func(ctx context.Context, input *provider.Input) (*provider.Outcome, error) {
		if input.Path[len(input.Path)-5] == '0' { // doc-000.txt
			return nil, provider.Permanent(errors.New("unsupported"))
		}
		return &provider.Outcome{Payload: string(input.Content), Confidence: 90}, nil
	}
	rig.router = newTestRouter(t, failing)

	o := rig.orchestrator(t, quietGovernor(t, 10))
	stats, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Failures, 1)
	assert.Contains(t, stats.Failures[0].Path, "doc-000")
	assert.Equal(t, 3, rig.downstream.distinct())
}

func TestRunCommitsBelowThresholdResults(t *testing.T) {
	rig := newTestRig(t, 2)
	weak := echoProvider("weak", 40)
	rig.router = newTestRouter(t, weak)

	o := rig.orchestrator(t, quietGovernor(t, 10))
	stats, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 2, stats.BelowThreshold)
	assert.Equal(t, 2, rig.downstream.distinct())

	items, err := Discover(context.Background(), rig.inputDir, nil)
	require.NoError(t, err)
	doc, err := rig.downstream.Get(context.Background(), items[0].Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "true", doc.Metadata["below_threshold"])
}

func TestRunPersistentPressureTurnsFatal(t *testing.T) {
	rig := newTestRig(t, 10,
		WithStreamBatchSize(5),
		WithBatchInsertSize(5),
		WithMaxConsecutiveThrottles(1),
		WithMemoryCheckStride(0))

	o := rig.orchestrator(t, quietGovernor(t, 95))
	stats, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrPersistentMemoryPressure)
	assert.Equal(t, StateFailed, o.State())

	// The first batch still committed and checkpointed before the
	// escalation; pressure never discards durable progress.
	assert.Equal(t, 1, stats.BatchesCompleted)
	record, loadErr := rig.checkpoints.Load()
	require.NoError(t, loadErr)
	require.NotNil(t, record)
	assert.Equal(t, 0, record.LastCompletedBatchIndex)
	assert.GreaterOrEqual(t, stats.ThrottleEvents, 1)
}

func TestRunEmbeddingFailureDegradesToNoVectors(t *testing.T) {
	rig := newTestRig(t, 2)
	rig.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	o := rig.orchestrator(t, quietGovernor(t, 10))
	stats, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Succeeded)

	items, err := Discover(context.Background(), rig.inputDir, nil)
	require.NoError(t, err)
	doc, err := rig.downstream.Get(context.Background(), items[0].Fingerprint)
	require.NoError(t, err)
	assert.Empty(t, doc.Vector)
}

func TestNewValidatesCollaborators(t *testing.T) {
	rig := newTestRig(t, 1)

	_, err := New(rig.cfg, nil, rig.downstream, rig.checkpoints)
	assert.ErrorIs(t, err, ErrRouterRequired)

	_, err = New(rig.cfg, rig.router, nil, rig.checkpoints)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = New(rig.cfg, rig.router, rig.downstream, nil)
	assert.ErrorIs(t, err, ErrCheckpointsRequired)

	_, err = New(NewConfig(), rig.router, rig.downstream, rig.checkpoints)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
