package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-auditor/internal/blob"
	"github.com/jonathan/site-auditor/internal/config"
	"github.com/jonathan/site-auditor/internal/queue"
	"github.com/jonathan/site-auditor/internal/report"
	"github.com/jonathan/site-auditor/internal/server"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  "Serves the scan API: POST /scans queues a scan, GET /scans/{id} returns the report, GET /scans/{id}/stream streams progress via SSE. Scans execute in worker processes (see the worker command).",
	RunE:  runServeCmd,
}

var servePort int

func init() {
	serveCommand.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP listen port (defaults to PORT env var)")
	rootCmd.AddCommand(serveCommand)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	store, pool, err := report.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	blobs, err := blob.NewFSStore(cfg.ScreenshotDir)
	if err != nil {
		return fmt.Errorf("failed to open screenshot store: %w", err)
	}

	q := queue.NewPostgresQueue(pool, cfg.MaxTaskAttempts)

	srv := server.New(server.Config{
		Port:      cfg.Port,
		JWTSecret: cfg.AuthJWTSecret,
	}, store, q, blobs)

	return srv.Start()
}
