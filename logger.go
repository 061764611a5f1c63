package sonigo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with sonigo-specific context.
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

// WithRoot adds a scan root field to the logger.
func (l *Logger) WithRoot(root string) *Logger {
	return &Logger{
		Logger: l.Logger.With("root", root),
	}
}

// WithUnit adds a unit directory field to the logger.
func (l *Logger) WithUnit(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("unit", dir),
	}
}

// WithWorkers adds a worker count field to the logger.
func (l *Logger) WithWorkers(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("workers", n),
	}
}

// LogConfigLoad logs loading of a model options file.
func (l *Logger) LogConfigLoad(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "options load failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "options loaded",
			"path", path,
		)
	}
}

// LogRunStart logs the start of a batch run.
func (l *Logger) LogRunStart(ctx context.Context, root string, workers int) {
	l.InfoContext(ctx, "batch run started",
		"root", root,
		"workers", workers,
	)
}

// LogRun logs the outcome of a batch run.
func (l *Logger) LogRun(ctx context.Context, root string, s Summary, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch run failed",
			"root", root,
			"units", s.Units,
			"failed", s.Failed,
			"elapsed", elapsed,
			"error", err,
		)
	} else if s.Failed > 0 {
		l.WarnContext(ctx, "batch run completed with failures",
			"root", root,
			"units", s.Units,
			"processed", s.Processed,
			"skipped", s.Skipped,
			"failed", s.Failed,
			"elapsed", elapsed,
		)
	} else {
		l.InfoContext(ctx, "batch run completed",
			"root", root,
			"units", s.Units,
			"processed", s.Processed,
			"skipped", s.Skipped,
			"elapsed", elapsed,
		)
	}
}

// LogClose logs pipeline shutdown.
func (l *Logger) LogClose(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "closed")
	}
}
