package logging

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyService     = "service"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyError       = "error"
	KeyTool        = "tool"
	KeyRequestID   = "request_id"
	KeyEventID     = "event_id"
	KeyFailureKind = "failure_kind"
	KeyProvider    = "provider"
	KeyModel       = "model"
	KeyQuestion    = "question"
)

// Status values for consistent logging.
// These mirror the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// maxQuestionLength bounds how much of a user question is written to logs.
const maxQuestionLength = 120

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithRequestID returns a logger with the request id attribute set.
func WithRequestID(logger *slog.Logger, id string) *slog.Logger {
	if id == "" {
		return logger
	}
	return logger.With(slog.String(KeyRequestID, id))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// RequestID returns a slog attribute for the HTTP request id.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// EventID returns a slog attribute for a calendar event id. An empty id
// yields an attribute slog omits.
func EventID(id string) slog.Attr {
	if id == "" {
		return slog.Group("")
	}
	return slog.String(KeyEventID, id)
}

// FailureKind returns a slog attribute for the failure kind of an error.
func FailureKind(kind string) slog.Attr {
	return slog.String(KeyFailureKind, kind)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Model returns an "llm" group naming the model provider and model.
func Model(provider, model string) slog.Attr {
	return slog.Group("llm", slog.String(KeyProvider, provider), slog.String(KeyModel, model))
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Question returns a slog attribute carrying a truncated user question.
// Questions are free text and may be long; only a prefix is kept.
func Question(q string) slog.Attr {
	return slog.String(KeyQuestion, Truncate(q, maxQuestionLength))
}

// Truncate shortens s to at most n runes, marking the cut with the number
// of runes dropped.
func Truncate(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	runes := []rune(s)
	return fmt.Sprintf("%s…[+%d]", string(runes[:n]), count-n)
}
