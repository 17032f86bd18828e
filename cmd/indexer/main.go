package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/workspace-rag/cmd/indexer/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{Name: "env", Usage: "path to .env file", Value: ".env"}
	rootFlag := &cli.StringFlag{Name: "root", Usage: "workspace root directory", Value: "."}
	postgresFlag := &cli.BoolFlag{Name: "postgres", Usage: "use the postgres+pgvector storage adapter instead of the in-memory one"}

	app := &cli.Command{
		Name:  "indexer",
		Usage: "workspace ingestion pipeline: discover, parse, enrich, embed and persist a developer workspace",
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "run the ingestion pipeline",
				Commands: []*cli.Command{
					{
						Name:   "scan",
						Usage:  "run a single pass over the workspace and exit",
						Flags:  []cli.Flag{envFlag, rootFlag, postgresFlag},
						Action: commands.ScanAction,
					},
					{
						Name:   "watch",
						Usage:  "scan once, then watch the workspace for live changes",
						Flags:  []cli.Flag{envFlag, rootFlag, postgresFlag},
						Action: commands.WatchAction,
					},
					{
						Name:   "run",
						Usage:  "long-lived scan+watch (alias for watch)",
						Flags:  []cli.Flag{envFlag, rootFlag, postgresFlag},
						Action: commands.RunAction,
					},
				},
			},
			{
				Name:  "lock",
				Usage: "LLM enrichment lock controls",
				Commands: []*cli.Command{
					{
						Name:  "set",
						Usage: "lock chunk enrichment for a bounded TTL",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{Name: "reason", Usage: "why enrichment is being paused"},
							&cli.IntFlag{Name: "ttl-seconds", Usage: "lock duration in seconds", Value: 300},
						},
						Action: commands.LockSetAction,
					},
					{
						Name:   "status",
						Usage:  "print the current lock state",
						Flags:  []cli.Flag{envFlag},
						Action: commands.LockStatusAction,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "start the HTTP control plane (lock set/get)",
				Flags:  []cli.Flag{envFlag, postgresFlag},
				Action: commands.ServeAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
