package main

import (
	"fmt"

	"github.com/jonathan/site-auditor/internal/audit"
	"github.com/jonathan/site-auditor/internal/blob"
	"github.com/jonathan/site-auditor/internal/capture"
	"github.com/jonathan/site-auditor/internal/config"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/report"
	"github.com/jonathan/site-auditor/internal/scan"
	"github.com/jonathan/site-auditor/internal/techdetect"
	"github.com/jonathan/site-auditor/internal/vision"
)

// buildOrchestrator wires the scan pipeline from configuration. The store is
// passed in because server/worker modes use Postgres while the one-shot scan
// runs on the in-memory store.
func buildOrchestrator(cfg *config.Config, store report.Store) (*scan.Orchestrator, blob.Store, error) {
	blobs, err := blob.NewFSStore(cfg.ScreenshotDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open screenshot store: %w", err)
	}

	analyzer, err := vision.NewAnalyzer(blobs)
	if err != nil {
		return nil, nil, err
	}

	orch := scan.New(scan.Deps{
		Store:    store,
		Capturer: capture.NewChromeCapturer(blobs),
		Auditor:  audit.NewPageSpeedAuditor(cfg.PageSpeedEndpoint, cfg.PageSpeedAPIKey),
		Detector: techdetect.NewDetector(cfg.TechLookupURL),
		Vision:   analyzer,
		Resolver: llm.NewResolverFromConfig(cfg),
		Policy:   scan.PolicyFromSections(cfg.RequiredSections),
	})
	return orch, blobs, nil
}
