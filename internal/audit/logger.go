package audit

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

// Logger provides structured audit logging for dashboard mutations
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// MutationApplied logs a server-confirmed change made from a dashboard.
// Deletes log at warn level.
func (l *Logger) MutationApplied(ctx context.Context, m dashboard.AppliedMutation) {
	level := zerolog.InfoLevel
	if m.Operation == domain.OpDelete {
		level = zerolog.WarnLevel
	}
	l.log.WithLevel(level).
		Str("action", string(m.Operation)).
		Str("resource", string(m.Resource)).
		Str("record_id", string(m.ID)).
		Str("value", m.Value).
		Str("session_id", m.SessionID).
		Str("trace_id", getTraceID(ctx)).
		Msg("Dashboard mutation applied")
}

// getTraceID prefers the active span, then the request id.
func getTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return middleware.GetRequestID(ctx)
}
