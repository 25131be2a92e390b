// Package logger provides component-scoped structured logging on top of
// log/slog. Every record carries the request ID found in its context.
package logger

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/contactkeeper/backend/internal/errors"
)

// Logger provides structured logging
type Logger struct {
	l *slog.Logger
}

var defaultLogger = New(os.Stdout, slog.LevelInfo, "json")

// New creates a logger writing JSON (or text, when format is "text") to output.
func New(output io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(output, opts)
	} else {
		h = slog.NewJSONHandler(output, opts)
	}

	return &Logger{l: slog.New(&contextHandler{Handler: h})}
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the default logger
func Default() *Logger {
	return defaultLogger
}

// WithComponent creates a new logger with the specified component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l: l.l.With("component", component)}
}

// With returns a child logger that always includes the given key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l: l.l.With(args...)}
}

// Slog exposes the underlying slog.Logger, e.g. for http.Server.ErrorLog.
func (l *Logger) Slog() *slog.Logger {
	return l.l
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.l.DebugContext(ctx, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.l.InfoContext(ctx, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.l.WarnContext(ctx, msg, args...)
}

// Error logs msg with err's details. AppErrors contribute their code and category.
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, errorAttr(err))
	}
	l.l.ErrorContext(ctx, msg, args...)
}

func errorAttr(err error) slog.Attr {
	attrs := []any{slog.String("message", err.Error())}

	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		attrs = append(attrs,
			slog.String("code", appErr.Code),
			slog.String("category", string(appErr.Category)),
		)
	}
	return slog.Group("error", attrs...)
}

// contextHandler copies the request ID from the context onto each record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID := apperrors.GetRequestID(ctx); requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// Package-level convenience functions

func Debug(ctx context.Context, msg string, args ...any) {
	defaultLogger.Debug(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	defaultLogger.Info(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	defaultLogger.Warn(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, err error, args ...any) {
	defaultLogger.Error(ctx, msg, err, args...)
}
