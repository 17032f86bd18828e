package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/workspace-rag/internal/platform/httpapi"
)

// LockSetAction sets a lock with the given reason and TTL on a freshly
// constructed AppContext's in-process coordinator. That coordinator lives
// only as long as this command, so the lock does not reach an indexer
// running in another process.
func LockSetAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer app.Close()

	ttl := time.Duration(cmd.Int("ttl-seconds")) * time.Second
	app.Lock.SetLock(cmd.String("reason"), ttl)
	fmt.Printf("lock set for %s (reason: %s)\n", ttl, cmd.String("reason"))
	return nil
}

// LockStatusAction prints the lock state of a freshly constructed
// in-process coordinator, which is always unlocked at start.
func LockStatusAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer app.Close()

	locked, reason, remaining := app.Lock.Status()
	if !locked {
		fmt.Println("unlocked")
		return nil
	}
	fmt.Printf("locked (reason: %s, remaining: %s)\n", reason, remaining.Round(time.Second))
	return nil
}

// ServeAction starts the HTTP control plane over this process's own
// LockCoordinator. The lock is held in memory only; it is not shared with
// an `index watch`/`index run` process started separately, and no
// pipeline runs inside the serve process.
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("postgres"))
	if err != nil {
		return err
	}
	defer app.Close()

	mux := http.NewServeMux()
	httpapi.NewLockHandler(app.Lock).Register(mux)

	srv := &http.Server{Addr: app.Config.HTTP.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("control plane listening", "addr", app.Config.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
