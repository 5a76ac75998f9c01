package extsort

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with extsort-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithSession adds the session temp directory to the logger.
func (l *Logger) WithSession(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session_dir", dir),
	}
}

// LogSpill logs one spilled run.
func (l *Logger) LogSpill(records int, bytes int64, err error) {
	if err != nil {
		l.Error("spill failed",
			"records", records,
			"error", err,
		)
	} else {
		l.Debug("run spilled",
			"records", records,
			"bytes", bytes,
		)
	}
}

// LogMergeRound logs one intermediate merge round.
func (l *Logger) LogMergeRound(round, fanIn int, err error) {
	if err != nil {
		l.Error("merge round failed",
			"round", round,
			"fan_in", fanIn,
			"error", err,
		)
	} else {
		l.Debug("merge round completed",
			"round", round,
			"fan_in", fanIn,
		)
	}
}

// LogMerge logs a completed merge.
func (l *Logger) LogMerge(runs, rounds int, err error) {
	if err != nil {
		l.Error("merge failed",
			"runs", runs,
			"rounds", rounds,
			"error", err,
		)
	} else {
		l.Debug("merge completed",
			"runs", runs,
			"rounds", rounds,
		)
	}
}
