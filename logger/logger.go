// Package logger provides structured logging for the light-mining bot.
//
// It uses Go's standard log/slog package with support for multiple output formats
// (text, color, JSON), configurable log levels, and context-aware logging.
// On top of the slog levels it defines LevelSuccess, used to mark a step that
// completed against the remote service or the chain.
//
// The logger is thread-safe and can be swapped at runtime when the
// configuration file is reloaded.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"takerminer/config"
)

// LevelSuccess ranks between info and warn; a warn-level logger drops it.
const LevelSuccess = slog.Level(2)

// Global logger instance with atomic access for thread safety
var globalLogger atomic.Pointer[slog.Logger]

// Config represents the logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // text, color, json
	Quiet   bool   // suppress all but errors
	Verbose bool   // enable debug logs
	Output  io.Writer
}

// Get returns the global logger instance, initializing it with defaults if necessary
func Get() *slog.Logger {
	logger := globalLogger.Load()
	if logger == nil {
		SetDefault()
		logger = globalLogger.Load()
	}
	return logger
}

// Set atomically updates the global logger
func Set(logger *slog.Logger) {
	globalLogger.Store(logger)
}

// SetDefault initializes the global logger with default settings
func SetDefault() {
	logger := New(Config{
		Level:   "info",
		Format:  "text",
		Quiet:   false,
		Verbose: false,
		Output:  os.Stderr,
	})
	Set(logger)
}

// New creates a new logger from the provided configuration
func New(cfg Config) *slog.Logger {
	level := parseLevel(cfg)
	handler := createHandler(cfg.Format, level, cfg.Output)
	return slog.New(handler)
}

// NewFromConfig creates a logger from the bot configuration that writes to
// output, or to stderr when output is nil.
func NewFromConfig(cfg *config.Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stderr
	}
	return New(Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Quiet:   cfg.Logging.Quiet,
		Verbose: cfg.Logging.Verbose,
		Output:  output,
	})
}

// parseLevel converts string level and flags to slog.Level
func parseLevel(cfg Config) slog.Level {
	// Verbose flag overrides to debug
	if cfg.Verbose {
		return slog.LevelDebug
	}

	// Quiet flag overrides to error only
	if cfg.Quiet {
		return slog.LevelError
	}

	switch strings.ToLower(cfg.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelName renders slog levels, including LevelSuccess, as upper-case tags.
func levelName(level slog.Level) string {
	if level == LevelSuccess {
		return "SUCCESS"
	}
	return level.String()
}

// Info logs an informational message using the global logger
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Success logs a completed step using the global logger
func Success(msg string, args ...any) {
	Get().Log(context.Background(), LevelSuccess, msg, args...)
}

// Warn logs a warning message using the global logger
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error message using the global logger
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

// Debug logs a debug message using the global logger
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}
