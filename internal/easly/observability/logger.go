// Package observability provides structured logging helpers for Easly.
//
// It wraps log/slog with trace and request ID propagation so that every log
// line emitted while handling one operator turn carries the same context.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopeasly/easly/common/redact"
	"github.com/shopeasly/easly/common/trace"
)

// ParseLevel maps "debug", "warn" and "error" to their slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
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

// NewLogger builds a logger writing to w. format "json" selects the JSON
// handler; anything else the text handler.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup configures the global slog logger to write to stderr.
func Setup(level, format string) {
	slog.SetDefault(NewLogger(os.Stderr, level, format))
}

// WithTrace returns a child logger that includes the trace_id and, inside an
// HTTP request, the request_id from ctx.
func WithTrace(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if id := trace.FromContext(ctx); id != "" {
		log = log.With("trace_id", id)
	}
	if rid := middleware.GetReqID(ctx); rid != "" {
		log = log.With("request_id", rid)
	}
	return log
}

// RedactSecrets replaces known-sensitive values in a log message with
// "[REDACTED]".
func RedactSecrets(msg string, sensitiveValues ...string) string {
	return redact.String(msg, sensitiveValues...)
}
