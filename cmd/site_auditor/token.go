package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-auditor/internal/config"
	"github.com/jonathan/site-auditor/internal/server"
)

var tokenCommand = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token",
	Long:  "Generates a signed bearer token for the HTTP API. Only meaningful when AUTH_JWT_SECRET is set; without it the API is open.",
	RunE:  runTokenCmd,
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCommand.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject claim")
	tokenCommand.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCommand)
}

func runTokenCmd(_ *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if cfg.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is not set; the API is running without auth")
	}

	token, err := server.GenerateToken(cfg.AuthJWTSecret, tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
