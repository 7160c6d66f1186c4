package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-auditor/internal/config"
	"github.com/jonathan/site-auditor/internal/observability"
	"github.com/jonathan/site-auditor/internal/report"
	"github.com/jonathan/site-auditor/internal/scan"
)

var scanCommand = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan one site and print the report",
	Long:  "Runs the full scan pipeline against a single URL without a database or queue, printing the report to stdout. Screenshots are stored under SCREENSHOT_DIR.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanCmd,
}

var (
	scanProvider string
	scanModel    string
	scanJSON     bool
)

func init() {
	scanCommand.Flags().StringVar(&scanProvider, "ai-provider", "", "AI provider for this scan (gemini, openai, anthropic)")
	scanCommand.Flags().StringVar(&scanModel, "ai-model", "", "AI model override")
	scanCommand.Flags().BoolVar(&scanJSON, "json", false, "Print the raw report JSON instead of formatted output")
	rootCmd.AddCommand(scanCommand)
}

func runScanCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()

	store := report.NewMemoryStore()
	orch, _, err := buildOrchestrator(cfg, store)
	if err != nil {
		return err
	}

	rec, err := store.Create(ctx, args[0])
	if err != nil {
		return err
	}

	if err := orch.Run(ctx, scan.Task{
		ReportID: rec.ID,
		URL:      args[0],
		Provider: scanProvider,
		Model:    scanModel,
	}); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	rec, err = store.Get(ctx, rec.ID)
	if err != nil {
		return err
	}

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	observability.NewPrinter(os.Stdout).PrintReport(rec)
	if rec.Status == report.StatusFailed {
		return fmt.Errorf("scan did not complete: %s", rec.ErrorMessage)
	}
	return nil
}
