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


package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/poiesic/docstream/ai"
	aiopenai "github.com/poiesic/docstream/ai/openai"
	"github.com/poiesic/docstream/cache"
	"github.com/poiesic/docstream/checkpoint"
	"github.com/poiesic/docstream/fallback"
	"github.com/poiesic/docstream/pipeline"
	"github.com/poiesic/docstream/provider"
	extopenai "github.com/poiesic/docstream/provider/openai"
	"github.com/poiesic/docstream/provider/plaintext"
	storebadger "github.com/poiesic/docstream/store/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docstream",
		Usage: "Resumable, memory-governed document ingestion pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before:   setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "process",
				Usage:  "Process an input directory into the document store",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Directory of documents to process",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "work-dir",
						Usage: "Directory holding the checkpoint file (defaults to db directory)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of items per outer batch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "insert-size",
						Usage: "Downstream commit chunk size",
						Value: 25,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Worker pool size within a batch (0 = half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "cache-size",
						Usage: "Bounded result cache capacity",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "threshold",
						Usage: "Provider confidence acceptance threshold (0-100)",
						Value: 70,
					},
					&cli.Float64Flag{
						Name:  "max-memory-percent",
						Usage: "System memory usage that triggers throttling",
						Value: 80,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for transient failures",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "provider-timeout",
						Usage: "Per-provider-call timeout",
						Value: 30 * time.Second,
					},
					&cli.StringFlag{
						Name:  "extraction-host",
						Usage: "OpenAI-compatible host for remote extraction (empty disables the remote provider)",
					},
					&cli.StringFlag{
						Name:  "extraction-model",
						Usage: "Model name for remote extraction",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (empty disables embeddings)",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.BoolFlag{
						Name:  "no-resume",
						Usage: "Ignore any existing checkpoint and start from scratch",
					},
					&cli.BoolFlag{
						Name:  "force-restart",
						Usage: "Discard a corrupt checkpoint instead of failing",
					},
				},
			},
			{
				Name:   "reset",
				Usage:  "Delete all stored documents and the checkpoint",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "work-dir",
						Usage: "Directory holding the checkpoint file (defaults to db directory)",
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the confirmation prompt",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show document store statistics",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func processCommand(c *cli.Context) error {
	// Derive GOMEMLIMIT from cgroup (or system) memory so the runtime
	// starts shedding heap before the governor ever has to throttle.
	if _, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.8),
		memlimit.WithLogger(slog.Default()),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	); err != nil {
		slog.Warn("failed to set GOMEMLIMIT", "err", err)
	}

	// An interrupt stops the run at the next batch boundary, after the
	// current batch commits and checkpoints.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storebadger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()
	downstream := storebadger.NewDocumentStore(backend)

	workDir := c.String("work-dir")
	if workDir == "" {
		workDir = c.String("db")
	}
	checkpoints, err := checkpoint.NewStore(workDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	retry := fallback.RetryPolicy{
		MaxAttempts: c.Int("max-retries"),
		BaseDelay:   c.Duration("retry-delay"),
		MaxDelay:    30 * time.Second,
	}

	router, err := buildRouter(c, retry)
	if err != nil {
		return err
	}

	cfgOpts := []pipeline.ConfigOption{
		pipeline.WithInputDir(c.String("input")),
		pipeline.WithStreamBatchSize(c.Int("batch-size")),
		pipeline.WithBatchInsertSize(c.Int("insert-size")),
		pipeline.WithMaxMemoryPercent(c.Float64("max-memory-percent")),
		pipeline.WithCommitRetry(retry),
		pipeline.WithResume(!c.Bool("no-resume")),
		pipeline.WithForceRestart(c.Bool("force-restart")),
	}
	if c.Int("workers") > 0 {
		cfgOpts = append(cfgOpts, pipeline.WithMaxWorkers(c.Int("workers")))
	}
	cfg := pipeline.NewConfig(cfgOpts...)

	var orchOpts []pipeline.Option
	if c.String("embedding-host") != "" {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)
		embedder, err := aiopenai.NewEmbedder(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		orchOpts = append(orchOpts, pipeline.WithEmbedder(embedder))
	}

	orchestrator, err := pipeline.New(cfg, router, downstream, checkpoints, orchOpts...)
	if err != nil {
		return err
	}

	if _, err := orchestrator.Run(ctx); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

func buildRouter(c *cli.Context, retry fallback.RetryPolicy) (*fallback.Router, error) {
	providers := []provider.Provider{plaintext.New()}

	if host := c.String("extraction-host"); host != "" {
		model := c.String("extraction-model")
		if model == "" {
			return nil, fmt.Errorf("extraction-model is required when extraction-host is set")
		}
		remote, err := extopenai.New(host, model)
		if err != nil {
			return nil, fmt.Errorf("failed to create remote provider: %w", err)
		}
		providers = append(providers, remote)
	}

	results, err := cache.NewBounded[fallback.Result](c.Int("cache-size"))
	if err != nil {
		return nil, err
	}

	return fallback.NewRouter(providers,
		fallback.WithCache(results),
		fallback.WithThreshold(c.Int("threshold")),
		fallback.WithTimeout(c.Duration("provider-timeout")),
		fallback.WithRetryPolicy(retry))
}

func resetCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		fmt.Fprintf(os.Stderr, "This deletes all stored documents and the checkpoint in %s. Type 'yes' to continue: ", c.String("db"))
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(os.Stderr, "aborted")
			return nil
		}
	}

	backend, err := storebadger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()
	downstream := storebadger.NewDocumentStore(backend)

	ctx := context.Background()
	count, err := downstream.Count(ctx)
	if err != nil {
		return err
	}
	if err := downstream.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	workDir := c.String("work-dir")
	if workDir == "" {
		workDir = c.String("db")
	}
	checkpoints, err := checkpoint.NewStore(workDir)
	if err != nil {
		return err
	}
	if err := checkpoints.Clear(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Deleted %d documents\n", count)
	return nil
}

func statsCommand(c *cli.Context) error {
	backend, err := storebadger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()
	downstream := storebadger.NewDocumentStore(backend)

	count, err := downstream.Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Documents: %d\n", count)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
