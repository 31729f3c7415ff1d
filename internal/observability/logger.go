package observability

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyUserID    ctxKey = "user_id"
)

// basic global logger, JSON to stdout until Init is called.
var logger atomic.Pointer[zap.Logger]

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Init replaces the global logger. level is a zap level name ("debug",
// "info", ...); development selects the console encoder.
func Init(level string, development bool) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	SetLogger(l)
	return l, nil
}

// SetLogger swaps the global logger, mainly for tests.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

func Logger() *zap.Logger {
	return logger.Load()
}

// WithFields returns a logger with additional fields.
func WithFields(fields ...zap.Field) *zap.Logger {
	return Logger().With(fields...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// WithUserID stores the acting user in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// LoggerFromContext adds request_id and user_id if present.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	l := Logger()
	if reqID := RequestID(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if userID, _ := ctx.Value(ctxKeyUserID).(string); userID != "" {
		l = l.With(zap.String("user_id", userID))
	}
	return l
}
