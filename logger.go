package slotarena

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with slotarena-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithVariant adds a variant field to the logger.
func (l *Logger) WithVariant(v Variant) *Logger {
	return &Logger{
		Logger: l.Logger.With("variant", v.String()),
	}
}

// WithSlot adds a slot index field to the logger.
func (l *Logger) WithSlot(slot uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("slot", slot),
	}
}

// LogCreate logs the construction of an arena.
func (l *Logger) LogCreate(ctx context.Context, v Variant, numSlots uint32, slotSize, capacity int) {
	l.InfoContext(ctx, "arena created",
		"variant", v.String(),
		"slots", numSlots,
		"slot_size", slotSize,
		"capacity", capacity,
	)
}

// LogClose logs the teardown of an arena.
func (l *Logger) LogClose(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "arena close failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "arena closed")
	}
}

// LogFreeAnomaly logs a rejected free. reason distinguishes an invalid
// buffer from a detected double free.
func (l *Logger) LogFreeAnomaly(ctx context.Context, reason error) {
	l.WarnContext(ctx, "free ignored",
		"reason", reason,
	)
}
