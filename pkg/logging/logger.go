package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace is below debug and only useful when chasing tokenizer issues.
const LevelTrace = slog.LevelDebug - 4

var logger atomic.Pointer[slog.Logger]

func init() {
	// Logs go to stderr; stdout belongs to command output.
	Configure(os.Stderr, slog.LevelInfo, false)
}

// Configure replaces the process logger. jsonOutput selects slog's JSON
// handler instead of the compact console format.
func Configure(w io.Writer, level slog.Level, jsonOutput bool) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = NewCompactHandler(w, opts)
	}
	logger.Store(slog.New(handler))
}

// ParseLevel maps a verbosity name, or failing that a -v count, to a level.
// An empty name with zero count yields info.
func ParseLevel(verbosity string, verboseCount int) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "":
	default:
		return slog.LevelInfo, fmt.Errorf("unknown verbosity %q", verbosity)
	}

	switch {
	case verboseCount >= 2:
		return LevelTrace, nil
	case verboseCount == 1:
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, nil
	}
}

// New returns a logger tagged with a component name, e.g. "collector".
func New(component string) *slog.Logger {
	return logger.Load().With("component", component)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func withRequestID(ctx context.Context, args []any) []any {
	if requestID := GetRequestID(ctx); requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Trace logs at TRACE level
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// InfoContext logs at INFO level with the request ID from ctx
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.Load().InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// WarnContext logs at WARN level with the request ID from ctx
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.Load().WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// ErrorContext logs at ERROR level with the request ID from ctx
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.Load().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}
