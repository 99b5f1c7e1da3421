// Package failure defines the error taxonomy of the agenda bridge.
//
// Every error that can reach a client is a *Error with one of the Kind
// constants. Lower layers create them with the constructors in this package
// (Parse, Validation, NotFound, Agent, Collaborator, Timeout), and the HTTP
// layer maps the Kind to a status code and a structured body:
//
//	{"error": "validation_failure", "message": "summary: is required"}
//
// Errors keep their cause, so errors.Is and errors.As see through them.
package failure
