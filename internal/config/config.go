// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	// SessionIdleTTL is how long an untouched session survives in storage
	// before the prune worker removes it. It must comfortably exceed the
	// event retention window so counters outlive their raw events.
	SessionIdleTTL time.Duration

	// PruneInterval is how often the prune worker runs.
	PruneInterval time.Duration

	// MemoryOnly skips SQLite entirely, for local development.
	MemoryOnly bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/progression.db"),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 90*24*time.Hour),
		PruneInterval:  getEnvDuration("PRUNE_INTERVAL", time.Hour),
		MemoryOnly:     getEnvBool("MEMORY_ONLY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if !c.MemoryOnly && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be > 0")
	}
	if c.PruneInterval <= 0 {
		return fmt.Errorf("PRUNE_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are read as hours.
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Hour
	}
	return fallback
}
