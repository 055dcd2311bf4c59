// Package logging wraps log/slog with the field names used across the
// loader, benchmark driver and CLI.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with consistent field names.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewWriter creates a Logger writing to w. format is "text" or "json".
func NewWriter(w io.Writer, format string, level slog.Level) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("logging: unsupported format %q", format)
}

// ParseLevel resolves debug, info, warn or error. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}

// Noop creates a Logger that discards all log output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// OrNoop returns l, or a discarding logger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return Noop()
	}
	return l
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{Logger: l.Logger.With("collection", name)}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// LogBatchInsert logs one loader batch.
func (l *Logger) LogBatchInsert(ctx context.Context, batch, size int, total int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch insert failed",
			"batch", batch,
			"size", size,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "batch insert completed",
		"batch", batch,
		"size", size,
		"total", total,
	)
}

// LogLoad logs the end of a container load.
func (l *Logger) LogLoad(ctx context.Context, vectors int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"vectors", vectors,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "load completed",
		"vectors", vectors,
		"elapsed", elapsed,
	)
}

// LogQuery logs one ranked query.
func (l *Logger) LogQuery(ctx context.Context, query, k, results int, latency time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query", query,
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "query completed",
		"query", query,
		"k", k,
		"results", results,
		"latency", latency,
	)
}
