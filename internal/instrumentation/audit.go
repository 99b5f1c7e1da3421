package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one calendar tool call for audit logging.
//
// Arguments hold what the model sent (titles, descriptions, free text
// dates). They are only written when the audit logger is configured with
// IncludeArguments.
type ToolInvocation struct {
	Tool      string
	RequestID string
	EventID   string
	Arguments string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Kind      string
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithRequestID ties the invocation to the HTTP request that triggered it.
func (ti *ToolInvocation) WithRequestID(id string) *ToolInvocation {
	ti.RequestID = id
	return ti
}

// WithEventID records the calendar event the tool acted on.
func (ti *ToolInvocation) WithEventID(id string) *ToolInvocation {
	ti.EventID = id
	return ti
}

// WithArguments records the raw tool arguments.
func (ti *ToolInvocation) WithArguments(args string) *ToolInvocation {
	ti.Arguments = args
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished. kind is the failure kind of
// err and is ignored on success.
func (ti *ToolInvocation) Complete(err error, kind string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
		ti.Kind = kind
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes of the invocation. Arguments are
// included only when withArguments is set.
func (ti *ToolInvocation) LogAttrs(withArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ti.RequestID))
	}
	if ti.EventID != "" {
		attrs = append(attrs, slog.String("event_id", ti.EventID))
	}
	if withArguments && ti.Arguments != "" {
		attrs = append(attrs, slog.String("arguments", ti.Arguments))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Kind != "" {
		attrs = append(attrs, slog.String("kind", ti.Kind))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger           *slog.Logger
	enabled          bool
	includeArguments bool
}

// NewAuditLogger creates an enabled AuditLogger that leaves arguments out.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger,
		enabled:          config.Enabled,
		includeArguments: config.IncludeArguments,
	}
}

// LogToolInvocation writes ti at info level on success and warn level on failure.
// A nil receiver is a no-op.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	attrs := ti.LogAttrs(al.includeArguments)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
