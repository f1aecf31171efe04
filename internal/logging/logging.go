package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process-wide logger at the given level and installs it as
// the slog default. Handlers write text to stderr; every component logger is
// derived from this one via With.
func Setup(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a config string to a slog level. Unrecognized or empty
// values fall back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
