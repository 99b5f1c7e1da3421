package common

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// Instrumentation bundles what Instrumented reports to. Every field may be nil.
type Instrumentation struct {
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Instrumented wraps a tool handler with a span, tool metrics and an audit
// record. The failure kind of a returned error is attached to all three.
//
// Usage:
//
//	handler = common.Instrumented("criar_evento", inst, handler)
func Instrumented(toolName string, inst *Instrumentation, handler Handler) Handler {
	if inst == nil {
		inst = &Instrumentation{}
	}
	logger := inst.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, args json.RawMessage) (any, error) {
		requestID := logging.RequestIDFromContext(ctx)
		eventID := eventIDFromArgs(args)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithRequestID(requestID).
				WithEventID(eventID).
				Build()...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithRequestID(requestID).
			WithEventID(eventID).
			WithArguments(string(args)).
			WithSpanContext(ctx)

		result, err := handler(ctx, args)

		kind := ""
		if err != nil {
			kind = string(failure.KindOf(err))
			instrumentation.SetSpanError(span, err, kind)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Complete(err, kind)

		inst.Metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), kind, invocation.Duration)
		inst.Audit.LogToolInvocation(invocation)

		logger.DebugContext(ctx, "tool finished",
			logging.Tool(toolName),
			logging.RequestID(requestID),
			logging.Status(invocation.Status()),
			logging.Duration(invocation.Duration),
			logging.Err(err))

		return result, err
	}
}

// eventIDFromArgs picks the eventId argument, if any, for span and audit attributes.
func eventIDFromArgs(args json.RawMessage) string {
	var head struct {
		EventID any `json:"eventId"`
	}
	if err := json.Unmarshal(args, &head); err != nil {
		return ""
	}
	id, _ := head.EventID.(string)
	return id
}
