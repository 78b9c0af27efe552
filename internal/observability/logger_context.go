// Package observability carries request-scoped logging state through
// context.Context so that usecases and adapters log with the same
// request_id and user_id as the HTTP access log.
package observability

import (
	"context"
	"log/slog"
)

type (
	loggerContextKey    struct{}
	requestIDContextKey struct{}
	userIDContextKey    struct{}
)

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or the default
// slog logger when none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID stores a non-empty request_id in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext retrieves the request_id from the context, or an empty
// string when none is present.
func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDContextKey{})
}

// ContextWithUserID stores the authenticated user and extends the context
// logger with a user_id attribute.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	ctx = withString(ctx, userIDContextKey{}, userID)
	return ContextWithLogger(ctx, LoggerFromContext(ctx).With(slog.String("user_id", userID)))
}

// UserIDFromContext returns the authenticated user, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, userIDContextKey{})
}

func withString(ctx context.Context, key any, v string) context.Context {
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func stringFrom(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}
