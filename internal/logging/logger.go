// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Verbosity levels accepted by Level.
const (
	VerbosityError = 0
	VerbosityInfo  = 1
	VerbosityDebug = 2
)

// Level maps a verbosity count to a slog level:
// 0 -> error, 1 -> info, 2 or more -> debug.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity <= VerbosityError:
		return slog.LevelError
	case verbosity == VerbosityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// New returns a logger writing to w. format is "json" or "text" (default).
func New(w io.Writer, level slog.Leveler, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "livemark")
}

// Init builds a logger on stderr for the given verbosity and format and
// installs it as the slog default.
func Init(verbosity int, format string) *slog.Logger {
	logger := New(os.Stderr, Level(verbosity), format)
	slog.SetDefault(logger)
	return logger
}
