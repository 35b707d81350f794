// Package config provides configuration for the dvr-service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the dvr-service configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	InternalPort int

	// Database
	DatabaseURL string

	// Session buffering
	SessionTimeout   time.Duration // inactivity window before auto-finalize
	MaxSessionsIndex int           // cap of the recent-sessions index

	// Storage
	StoreTimeout time.Duration // per-call bound on persistence operations

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		InternalPort:     getEnvInt("INTERNAL_PORT", 8081),
		DatabaseURL:      getEnv("DATABASE_URL", "file:dvr.db?_journal_mode=WAL&_busy_timeout=5000"),
		SessionTimeout:   time.Duration(getEnvInt("SESSION_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxSessionsIndex: getEnvInt("MAX_SESSIONS_INDEX", 1000),
		StoreTimeout:     time.Duration(getEnvInt("STORE_TIMEOUT_MS", 5000)) * time.Millisecond,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
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
