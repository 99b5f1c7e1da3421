package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure. The string value is what clients see in the
// "error" field of a structured error response.
type Kind string

const (
	// KindParse means a natural-language time expression could not be resolved.
	KindParse Kind = "parse_failure"

	// KindValidation means a tool parameter or request field was malformed or missing.
	KindValidation Kind = "validation_failure"

	// KindNotFound means the calendar reported that the referenced event does not exist.
	KindNotFound Kind = "not_found"

	// KindAgent means the agent run itself failed.
	KindAgent Kind = "agent_failure"

	// KindCollaborator means the calendar service failed (network, auth, quota).
	KindCollaborator Kind = "collaborator_failure"

	// KindTimeout means the per-request deadline expired.
	KindTimeout Kind = "timeout"

	// KindUnknown is reported for errors that carry no Kind.
	KindUnknown Kind = "internal_error"
)

// Error is the error type shared by every layer of the bridge.
type Error struct {
	Kind Kind

	// Field names the offending parameter for validation failures.
	Field string

	// Text holds the original input for parse failures.
	Text string

	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parse returns a parse failure carrying the text that could not be resolved.
func Parse(text string) *Error {
	return &Error{
		Kind:    KindParse,
		Text:    text,
		Message: fmt.Sprintf("não foi possível interpretar a data %q", text),
	}
}

// Validation returns a validation failure for the named field.
func Validation(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound returns a not-found failure for the given event id.
func NotFound(eventID string, err error) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("event %q not found", eventID),
		Err:     err,
	}
}

// Agent wraps an error raised by the agent run.
func Agent(err error) *Error {
	return &Error{Kind: KindAgent, Err: err}
}

// Agentf returns an agent failure with a formatted message.
func Agentf(format string, args ...any) *Error {
	return &Error{Kind: KindAgent, Message: fmt.Sprintf(format, args...)}
}

// Collaborator wraps an error returned by the calendar service.
func Collaborator(op string, err error) *Error {
	return &Error{
		Kind:    KindCollaborator,
		Message: fmt.Sprintf("failed to %s: %v", op, err),
		Err:     err,
	}
}

// Timeout wraps a deadline error.
func Timeout(err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: "request deadline exceeded",
		Err:     err,
	}
}

// KindOf reports the Kind of err. A bare context.DeadlineExceeded anywhere in
// the chain is reported as KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Field != "" {
			return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
		}
		if fe.Message != "" {
			return fe.Message
		}
		if fe.Err != nil {
			return fe.Err.Error()
		}
	}
	return err.Error()
}

// FieldOf returns the offending field of a validation failure, or "".
func FieldOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
