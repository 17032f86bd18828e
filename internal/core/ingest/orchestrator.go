package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source produces FileContext events onto the first stage's queue: a
// one-shot workspace scan, a live filesystem watcher, or (in tests) a
// canned fixture feed.
type Source interface {
	Name() string
	Run(ctx context.Context, out *Queue[*FileContext]) error
}

// OrchestratorConfig tunes the queues and worker pools the Orchestrator
// wires between stages.
type OrchestratorConfig struct {
	QueueCapacity   int
	ThrottleDelay   time.Duration
	MonitorInterval time.Duration
	ShutdownTimeout time.Duration
	// Workers maps a stage name to its worker-pool size; stages absent
	// from the map default to 1 worker.
	Workers map[string]int
}

// DefaultOrchestratorConfig mirrors the defaults spec.md names: modest
// queue depth, 1ms soft-throttle, 10s monitor tick.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		QueueCapacity:   256,
		ThrottleDelay:   time.Millisecond,
		MonitorInterval: 10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Workers:         map[string]int{},
	}
}

// Orchestrator wires an ordered list of Stages with N+1 Queues (one before
// each stage, one after the last; the last stage runs with no output queue,
// so the final queue stays empty) and drives sources, stage worker pools,
// a queue-depth monitor loop, and graceful shutdown.
type Orchestrator struct {
	cfg    OrchestratorConfig
	log    *slog.Logger
	stages []Stage
	queues []*Queue[*FileContext]
	runID  string

	sourcesMu sync.Mutex
	sources   []Source
	sourceWG  sync.WaitGroup

	cancelSources context.CancelFunc
	stagesWG      sync.WaitGroup
}

// NewOrchestrator builds the queue chain for the given ordered stages.
func NewOrchestrator(log *slog.Logger, cfg OrchestratorConfig, stages ...Stage) *Orchestrator {
	queues := make([]*Queue[*FileContext], len(stages)+1)
	for i := range queues {
		queues[i] = NewQueue[*FileContext](cfg.QueueCapacity, cfg.ThrottleDelay)
	}
	return &Orchestrator{
		cfg:    cfg,
		log:    log,
		stages: stages,
		queues: queues,
		runID:  uuid.NewString(),
	}
}

// RunID returns the identifier generated for this Orchestrator, stamped onto
// every FileContext entering the pipeline through its first stage. Logged at
// Run start so a single run's log lines can be correlated across workers.
func (o *Orchestrator) RunID() string { return o.runID }

// AddSource registers a Source against the first queue. If wait is true,
// AddSource blocks until this source's Run method returns and returns its
// error (used for a one-shot scan that must fully enumerate before the
// caller moves on); if false, AddSource returns at once and the source runs
// in the background until ctx is canceled (used for the live watcher).
func (o *Orchestrator) AddSource(ctx context.Context, source Source, wait bool) error {
	sourceCtx, cancel := context.WithCancel(ctx)
	o.sourcesMu.Lock()
	o.sources = append(o.sources, source)
	if o.cancelSources == nil {
		o.cancelSources = cancel
	} else {
		prev := o.cancelSources
		o.cancelSources = func() { prev(); cancel() }
	}
	o.sourcesMu.Unlock()

	o.sourceWG.Add(1)
	errCh := make(chan error, 1)
	go func() {
		defer o.sourceWG.Done()
		err := source.Run(sourceCtx, o.queues[0])
		if err != nil {
			o.log.Error("source stopped with error", "source", source.Name(), "error", err)
		}
		errCh <- err
	}()

	if wait {
		return <-errCh
	}
	return nil
}

// Run starts every stage's worker pool and the monitor loop, then blocks
// until ctx is canceled, after which it runs shutdown and returns its
// result. Run does not return on its own when sources finish; callers
// cancel ctx to end the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("orchestrator run starting", "run_id", o.runID)

	for i, stage := range o.stages {
		if i == 0 {
			stage = &runIDStage{inner: stage, runID: o.runID}
		}
		if starter, ok := o.stages[i].(Starter); ok {
			go starter.Start(ctx)
		}
		workers := o.cfg.Workers[o.stages[i].Name()]
		if workers < 1 {
			workers = 1
		}
		in, out := o.queues[i], o.queues[i+1]
		if i == len(o.stages)-1 {
			// Nothing consumes the queue after the last stage.
			out = nil
		}
		o.stagesWG.Add(1)
		go func(stage Stage, workers int, in, out *Queue[*FileContext]) {
			defer o.stagesWG.Done()
			RunStage(ctx, o.log, stage, workers, in, out)
		}(stage, workers, in, out)
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go o.monitorLoop(monitorCtx)

	<-ctx.Done()
	return o.shutdown()
}

// shutdown cancels all sources, sends one shutdown sentinel per first-stage
// worker, waits for the pipeline to drain up to ShutdownTimeout, then
// returns.
func (o *Orchestrator) shutdown() error {
	o.sourcesMu.Lock()
	cancel := o.cancelSources
	o.sourcesMu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.sourceWG.Wait()

	firstWorkers := o.cfg.Workers[o.stageName(0)]
	if firstWorkers < 1 {
		firstWorkers = 1
	}
	for i := 0; i < firstWorkers; i++ {
		o.queues[0].Put(ShutdownItem[*FileContext]())
	}

	done := make(chan struct{})
	go func() {
		o.stagesWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(o.cfg.ShutdownTimeout):
		return fmt.Errorf("ingest: shutdown deadline of %s exceeded with workers still draining", o.cfg.ShutdownTimeout)
	}
}

// runIDStage wraps the first stage in the chain to stamp the orchestrator's
// run identifier onto every FileContext entering the pipeline, before
// anything else sees it.
type runIDStage struct {
	inner Stage
	runID string
}

func (s *runIDStage) Name() string { return s.inner.Name() }

func (s *runIDStage) Process(ctx context.Context, fc *FileContext) (*FileContext, error) {
	fc.RunID = s.runID
	return s.inner.Process(ctx, fc)
}

func (o *Orchestrator) stageName(i int) string {
	if i < 0 || i >= len(o.stages) {
		return ""
	}
	return o.stages[i].Name()
}

// monitorLoop periodically logs each queue's depth relative to capacity,
// the cheap telemetry an operator needs to see where backpressure is
// building up.
func (o *Orchestrator) monitorLoop(ctx context.Context) {
	interval := o.cfg.MonitorInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			attrs := make([]any, 0, len(o.queues)*2)
			for i, q := range o.queues {
				attrs = append(attrs, fmt.Sprintf("q%d_depth", i), q.Depth(), fmt.Sprintf("q%d_cap", i), q.Capacity())
			}
			o.log.Info("pipeline queue depths", attrs...)
		}
	}
}
