package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Stage is the uniform contract every pipeline step implements: pull one
// FileContext off its input queue, do its work, and push the result
// (possibly unchanged, possibly dropped) onto its output queue.
//
// Process returning a nil *FileContext tells RunStage to drop the item
// (used by IncrementalFilter, which buffers scan events and pushes the ones
// it forwards onto its own output queue).
type Stage interface {
	Name() string
	Process(ctx context.Context, fc *FileContext) (*FileContext, error)
}

// Starter is an optional extension a Stage can implement when it needs a
// background goroutine independent of its per-item Process calls (e.g.
// IncrementalFilter's timer-driven batch flush). Orchestrator.Run starts
// it once, before handing out work to the stage's worker pool.
type Starter interface {
	Start(ctx context.Context)
}

// RunStage drives `workers` goroutines pulling from in and pushing to out,
// until in is closed and drained. It recovers panics per-worker so one bad
// worker goroutine cannot take down its siblings or the rest of the
// pipeline; a recovered panic is recorded as a file error, not re-raised.
//
// out may be nil for a terminal stage (FileSummary) that writes directly to
// storage and has nothing further downstream.
func RunStage(ctx context.Context, log *slog.Logger, stage Stage, workers int, in *Queue[*FileContext], out *Queue[*FileContext]) {
	if workers < 1 {
		workers = 1
	}

	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			runWorker(ctx, log, stage, workerID, in, out)
		}(i)
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	if out != nil {
		out.Close()
	}
}

func runWorker(ctx context.Context, log *slog.Logger, stage Stage, workerID int, in *Queue[*FileContext], out *Queue[*FileContext]) {
	for {
		item, ok := in.Get()
		if !ok {
			return
		}
		if item.Shutdown {
			return
		}
		processOne(ctx, log, stage, workerID, item.Value, out)
	}
}

func processOne(ctx context.Context, log *slog.Logger, stage Stage, workerID int, fc *FileContext, out *Queue[*FileContext]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("stage worker panic recovered",
				"stage", stage.Name(),
				"worker", workerID,
				"file_path", fc.FilePath,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			fc.Status = StatusFailed
			fc.AddError(fmt.Errorf("%s: panic: %v", stage.Name(), r))
			if out != nil {
				out.Put(NewItem(fc))
			}
		}
	}()

	result, err := stage.Process(ctx, fc)
	if err != nil {
		log.Warn("stage error", "stage", stage.Name(), "file_path", fc.FilePath, "error", err)
		fc.AddError(err)
	}
	if result == nil {
		return
	}
	if out != nil {
		out.Put(NewItem(result))
	}
}
