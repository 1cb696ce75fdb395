// Package config provides configuration for the hub.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the hub configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// CLI agent settings
	CLIBin       string
	CLIWorkDir   string
	DefaultModel string
	CLITimeout   time.Duration

	// Session pool
	MaxSessions   int
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// Plugins disabled by config, comma separated names
	DisabledPlugins string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:     getEnv("DATABASE_URL", "file:chathub.db?cache=shared&mode=rwc"),
		CLIBin:          getEnv("CLI_BIN", "claude"),
		CLIWorkDir:      getEnv("CLI_WORKDIR", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", "claude-sonnet-4"),
		CLITimeout:      time.Duration(getEnvInt("CLI_TIMEOUT_MS", 300000)) * time.Millisecond,
		MaxSessions:     getEnvInt("MAX_SESSIONS", 8),
		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_MS", 1800000)) * time.Millisecond,
		SweepInterval:   time.Duration(getEnvInt("SWEEP_INTERVAL_MS", 60000)) * time.Millisecond,
		DisabledPlugins: getEnv("DISABLED_PLUGINS", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
