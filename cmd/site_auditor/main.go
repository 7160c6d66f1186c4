// Package main provides the entry point for the site auditor CLI and server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "site_auditor",
	Short: "Website QA scanner",
	Long:  "Site Auditor scans a website end to end: screenshots across viewports, a Lighthouse-backed performance and accessibility audit, technology fingerprinting, and AI-generated explanations, merged into one report.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
