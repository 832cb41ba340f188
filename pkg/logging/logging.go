package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// NewStructuredLogger builds a JSON-to-stderr slog.Logger tagged with the
// given module name and version, at the level named by the LOG_LEVEL
// environment variable (default info).
func NewStructuredLogger(module, version string) *slog.Logger {
	return NewStructuredLoggerWithLevel(module, version, os.Getenv("LOG_LEVEL"))
}

// NewStructuredLoggerWithLevel is like NewStructuredLogger but takes an
// explicit level string instead of reading LOG_LEVEL.
func NewStructuredLoggerWithLevel(module, version, level string) *slog.Logger {
	lvl := parseLevel(level)

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})

	return slog.New(handler).With(
		slog.String("module", module),
		slog.String("version", version),
	)
}

// SetDefaultStructuredLogger installs a structured logger as slog's package
// default, at the level named by LOG_LEVEL (default info).
func SetDefaultStructuredLogger(module, version string) {
	slog.SetDefault(NewStructuredLogger(module, version))
}

// SetDefaultStructuredLoggerWithLevel is like SetDefaultStructuredLogger but
// takes an explicit level string.
func SetDefaultStructuredLoggerWithLevel(module, version, level string) {
	slog.SetDefault(NewStructuredLoggerWithLevel(module, version, level))
}

// NewLogLogger adapts an slog.Logger (at the given level) to a standard
// library *log.Logger, for code that predates slog adoption.
func NewLogLogger(level slog.Level, addSource bool) *log.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	})
	return slog.NewLogLogger(handler, level)
}

// parseLevel maps a case-insensitive level name to an slog.Level, defaulting
// to info for an empty or unrecognized value.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
