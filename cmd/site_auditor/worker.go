package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/site-auditor/internal/config"
	"github.com/jonathan/site-auditor/internal/queue"
	"github.com/jonathan/site-auditor/internal/report"
	"github.com/jonathan/site-auditor/internal/scan"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "Run scan workers",
	Long:  "Polls the task queue and executes scans. Run alongside the serve command; scale by increasing --concurrency or running more worker processes.",
	RunE:  runWorkerCmd,
}

var workerConcurrency int

func init() {
	workerCommand.Flags().IntVarP(&workerConcurrency, "concurrency", "c", 1, "Number of scans to run in parallel")
	rootCmd.AddCommand(workerCommand)
}

func runWorkerCmd(_ *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if workerConcurrency < 1 {
		workerConcurrency = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, pool, err := report.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	orch, _, err := buildOrchestrator(cfg, store)
	if err != nil {
		return err
	}

	q := queue.NewPostgresQueue(pool, cfg.MaxTaskAttempts)
	handler := func(ctx context.Context, t queue.Task) error {
		return orch.Run(ctx, scan.Task{
			ReportID: t.ReportID,
			URL:      t.URL,
			Provider: t.Provider,
			Model:    t.Model,
		})
	}

	log.Printf("Starting %d worker(s), polling every %s", workerConcurrency, cfg.WorkerPollInterval)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < workerConcurrency; i++ {
		w := queue.NewWorker(q, cfg.WorkerPollInterval, handler)
		g.Go(func() error {
			return w.Run(gCtx)
		})
	}

	err = g.Wait()
	if err == context.Canceled {
		log.Println("Workers stopped")
		return nil
	}
	return err
}
