// Package config provides configuration loading and validation for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration. It is built once at process start
// (FromEnv) and passed by injection into the components that need it; business
// logic never reads the environment directly.
type Config struct {
	// Server
	Port          int    // HTTP listen port
	AuthJWTSecret string // Optional; bearer-JWT auth is enabled when non-empty

	// Storage
	DatabaseURL   string // PostgreSQL connection URL
	ScreenshotDir string // Filesystem root for the screenshot blob store

	// Audit engine
	PageSpeedEndpoint string // PageSpeed Insights API endpoint
	PageSpeedAPIKey   string // Optional API key for higher quota

	// Technology detection
	TechLookupURL string // Optional remote fingerprint endpoint; local detection when empty

	// AI providers
	DefaultAIProvider string // Provider used when a request names none
	GeminiAPIKey      string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	GeminiModel       string // Optional model overrides; empty uses per-provider defaults
	OpenAIModel       string
	AnthropicModel    string

	// Pipeline policy
	RequiredSections []string // Sections whose failure fails the scan

	// Worker
	WorkerPollInterval time.Duration
	MaxTaskAttempts    int
}

// Default values applied when the environment leaves a knob unset.
const (
	DefaultPort              = 8080
	DefaultScreenshotDir     = "data/screenshots"
	DefaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	DefaultAIProvider        = "gemini"
	DefaultPollInterval      = 2 * time.Second
	DefaultMaxTaskAttempts   = 3
)

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset. It never fails; call Validate before using the result.
func FromEnv() *Config {
	return &Config{
		Port:               envInt("PORT", DefaultPort),
		AuthJWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ScreenshotDir:      envString("SCREENSHOT_DIR", DefaultScreenshotDir),
		PageSpeedEndpoint:  envString("PAGESPEED_ENDPOINT", DefaultPageSpeedEndpoint),
		PageSpeedAPIKey:    os.Getenv("PAGESPEED_API_KEY"),
		TechLookupURL:      os.Getenv("TECH_LOOKUP_URL"),
		DefaultAIProvider:  envString("AI_PROVIDER", DefaultAIProvider),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		GeminiModel:        os.Getenv("GEMINI_MODEL"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		AnthropicModel:     os.Getenv("ANTHROPIC_MODEL"),
		RequiredSections:   envList("REQUIRED_SECTIONS", []string{"capture", "audit"}),
		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", DefaultPollInterval),
		MaxTaskAttempts:    envInt("MAX_TASK_ATTEMPTS", DefaultMaxTaskAttempts),
	}
}

// Validate checks that the configuration is usable for server/worker modes.
// The one-shot CLI scan runs without a database and skips this.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: invalid port %d", c.Port)
	}
	if c.MaxTaskAttempts < 1 {
		return fmt.Errorf("config error: MAX_TASK_ATTEMPTS must be at least 1")
	}
	if len(c.RequiredSections) == 0 {
		return fmt.Errorf("config error: REQUIRED_SECTIONS must name at least one section")
	}
	return nil
}

// APIKeyFor returns the configured credential for a provider name, or "".
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

// ModelFor returns the environment-configured model override for a provider,
// or "" when the hardcoded per-provider default should be used.
func (c *Config) ModelFor(provider string) string {
	switch provider {
	case "gemini":
		return c.GeminiModel
	case "openai":
		return c.OpenAIModel
	case "anthropic":
		return c.AnthropicModel
	default:
		return ""
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
