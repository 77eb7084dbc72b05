// Package logger provides a small structured logging wrapper used across
// every component so call sites never depend on log/slog directly.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Level controls the minimum severity emitted by a Logger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoggerInterface is the surface every component depends on, so tests can
// substitute a no-op or recording implementation.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Logger is the default LoggerInterface implementation, backed by log/slog.
type Logger struct {
	slog *slog.Logger
}

var _ LoggerInterface = (*Logger)(nil)

// New creates a Logger writing to w at the given minimum level, tagging
// every line with the service name and any base attributes.
func New(w io.Writer, level Level, service string, base []any) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	l := slog.New(h)
	if service != "" {
		l = l.With("service", service)
	}
	if len(base) > 0 {
		l = l.With(base...)
	}
	return &Logger{slog: l}
}

// NewDiscard returns a Logger that drops every record.
func NewDiscard() *Logger {
	return New(io.Discard, LevelError, "", nil)
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	l.slog.DebugContext(ctx, msg, kv...)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	l.slog.InfoContext(ctx, msg, kv...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	l.slog.WarnContext(ctx, msg, kv...)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...any) {
	l.slog.ErrorContext(ctx, msg, kv...)
}

// With returns a child logger that always includes the given attributes.
func (l *Logger) With(kv ...any) LoggerInterface {
	return &Logger{slog: l.slog.With(kv...)}
}
