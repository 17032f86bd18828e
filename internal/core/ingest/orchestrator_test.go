package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureSource emits a fixed set of FileContexts then returns.
type fixtureSource struct {
	items []*FileContext
}

func (f *fixtureSource) Name() string { return "fixture" }

func (f *fixtureSource) Run(ctx context.Context, out *Queue[*FileContext]) error {
	for _, fc := range f.items {
		out.Put(NewItem(fc))
	}
	return nil
}

// collectStage is a terminal Stage that records every FileContext it sees.
type collectStage struct {
	mu   sync.Mutex
	seen []*FileContext
}

func (c *collectStage) Name() string { return "collect" }

func (c *collectStage) Process(ctx context.Context, fc *FileContext) (*FileContext, error) {
	c.mu.Lock()
	c.seen = append(c.seen, fc)
	c.mu.Unlock()
	return fc, nil
}

func TestOrchestratorStampsRunIDOnEveryFileContext(t *testing.T) {
	collect := &collectStage{}
	cfg := DefaultOrchestratorConfig()
	cfg.MonitorInterval = time.Hour
	cfg.ShutdownTimeout = 5 * time.Second
	orch := NewOrchestrator(testLogger(), cfg, collect)

	require.NotEmpty(t, orch.RunID())

	source := &fixtureSource{items: []*FileContext{
		{FilePath: "a.py", EventType: EventScan},
		{FilePath: "b.py", EventType: EventScan},
	}}

	ctx, cancel := context.WithCancel(context.Background())

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- orch.Run(ctx) }()

	require.NoError(t, orch.AddSource(ctx, source, true))

	require.Eventually(t, func() bool {
		collect.mu.Lock()
		defer collect.mu.Unlock()
		return len(collect.seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-runErrCh)

	collect.mu.Lock()
	defer collect.mu.Unlock()
	for _, fc := range collect.seen {
		assert.Equal(t, orch.RunID(), fc.RunID)
	}
}

func TestOrchestratorShutdownReturnsAfterSourcesAndStagesDrain(t *testing.T) {
	collect := &collectStage{}
	cfg := DefaultOrchestratorConfig()
	cfg.MonitorInterval = time.Hour
	cfg.ShutdownTimeout = 2 * time.Second
	orch := NewOrchestrator(testLogger(), cfg, collect)

	ctx, cancel := context.WithCancel(context.Background())
	runErrCh := make(chan error, 1)
	go func() { runErrCh <- orch.Run(ctx) }()

	require.NoError(t, orch.AddSource(ctx, &fixtureSource{}, true))

	cancel()
	select {
	case err := <-runErrCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("expected Run to return after shutdown")
	}
}
