// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Schema cache operations (hit/miss, key, TTL)
//   - Credential validation outcomes
//   - Usage header capture
//
// Info: Normal operation events
//   - Successful page and by-id fetches
//   - Pagination start/progress/completion
//   - Connection test results
//
// Warn: Warning conditions that don't prevent operation
//   - 429 responses and the wait before the single retry
//   - Deals absent on by-id lookups (404)
//   - Degraded diagnostics sub-steps
//   - Schema cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Failed requests (including the retry after a 429)
//   - Transport-level faults
//   - Configuration errors
//
// Context Fields:
//   - endpoint: HubSpot API path
//   - status_code: HTTP status code
//   - duration_ms: Request duration in milliseconds
//   - error_class: Error classification (client, server, rate_limit, network)
//   - deal_count: Number of deals in a page response
//   - has_more: Whether the page carried a next cursor
//   - retry_after_ms: Wait imposed by a 429 response
//   - property_count: Number of schema properties returned
