package logging

import (
	"context"
	"log/slog"

	"barista/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBrewID is the standardized structured logging key for brew identifiers.
	FieldBrewID = "brew_id"
	// FieldUserID is the standardized structured logging key for user identifiers.
	FieldUserID = "user_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log records for downstream filtering.
	FieldEventType = "event_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.BrewIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldBrewID, id))
	}
	if user, ok := services.UserIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUserID, user))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}
