package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/core/ingest/gitignore"
	"github.com/jinford/workspace-rag/internal/core/ingest/source"
	"github.com/jinford/workspace-rag/internal/core/ingest/stages"
)

// buildOrchestrator wires the six-stage pipeline the same way for every
// `index` subcommand; only which Sources get registered differs.
func buildOrchestrator(app *AppContext) *ingest.Orchestrator {
	cfg := ingest.DefaultOrchestratorConfig()
	cfg.QueueCapacity = app.Config.Pipeline.QueueCapacity
	cfg.ThrottleDelay = app.Config.Pipeline.ThrottleDelay
	cfg.MonitorInterval = app.Config.Pipeline.MonitorInterval
	cfg.ShutdownTimeout = app.Config.Pipeline.ShutdownTimeout
	cfg.Workers = map[string]int{
		"parse":             app.Config.Pipeline.ParseWorkers,
		"chunk_enrich":      app.Config.Pipeline.ChunkEnrichWorkers,
		"embed":             app.Config.Pipeline.EmbedWorkers,
		"persist":           app.Config.Pipeline.PersistWorkers,
		"file_summary":      app.Config.Pipeline.FileSummaryWorkers,
		"incremental_filter": 1, // batches internally; more workers would fragment the buffer
	}

	filterOut := ingest.NewQueue[*ingest.FileContext](cfg.QueueCapacity, cfg.ThrottleDelay)
	filter := stages.NewIncrementalFilter(app.Storage, stages.IncrementalFilterConfig{
		BatchSize:     app.Config.Pipeline.IncrementalFilterBatch,
		FlushInterval: app.Config.Pipeline.IncrementalFilterWindow,
	}, app.Logger, filterOut)

	parse := stages.NewParse()
	chunkEnrich := stages.NewChunkEnrich(app.Chat, app.Lock, app.Config.Pipeline.ChunkEnrichRatePerSec, app.Logger)
	embed := stages.NewEmbed(app.Embedder, app.Config.Pipeline.EmbeddingBatchSize, app.Config.Pipeline.EmbedRatePerSec, app.Logger)
	persist := stages.NewPersist(app.Storage)
	fileSummary := stages.NewFileSummary(app.Storage)

	orch := ingest.NewOrchestrator(app.Logger, cfg, filter, parse, chunkEnrich, embed, persist, fileSummary)
	return orch
}

// ScanAction runs a single pass over the workspace and exits once the
// pipeline has fully drained.
func ScanAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("postgres"))
	if err != nil {
		return err
	}
	defer app.Close()

	root := cmd.String("root")
	scanner, err := source.NewScanner(root, app.Logger)
	if err != nil {
		return fmt.Errorf("build scanner: %w", err)
	}

	orch := buildOrchestrator(app)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		_ = orch.AddSource(runCtx, scanner, true)
		cancel()
	}()

	return orch.Run(runCtx)
}

// WatchAction scans once, then watches the workspace for live changes
// until the process is interrupted.
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("postgres"))
	if err != nil {
		return err
	}
	defer app.Close()

	root := cmd.String("root")
	matcher := gitignore.NewMatcher(root)
	if err := matcher.Load(); err != nil {
		return fmt.Errorf("load gitignore: %w", err)
	}
	scanner, err := source.NewScanner(root, app.Logger)
	if err != nil {
		return fmt.Errorf("build scanner: %w", err)
	}
	watcher := source.NewWatcher(root, matcher, app.Logger)

	orch := buildOrchestrator(app)

	if err := orch.AddSource(ctx, scanner, true); err != nil {
		app.Logger.Warn("initial scan reported an error", "error", err)
	}
	if err := orch.AddSource(ctx, watcher, false); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	return orch.Run(ctx)
}

// RunAction is an alias for WatchAction: spec.md's "index scan|watch|run"
// naming keeps `run` as the long-lived combined scan+watch entrypoint a
// deployment typically invokes.
func RunAction(ctx context.Context, cmd *cli.Command) error {
	return WatchAction(ctx, cmd)
}
