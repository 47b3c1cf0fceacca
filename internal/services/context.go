package services

import "context"

type contextKey string

const (
	brewIDKey    contextKey = "brew_id"
	userIDKey    contextKey = "user_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithBrewID annotates context with the brew identifier.
func WithBrewID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, brewIDKey, id)
}

// BrewIDFromContext extracts the brew identifier if present.
func BrewIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(brewIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithUserID annotates context with the requesting user identifier.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the user identifier if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
