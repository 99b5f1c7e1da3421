// Package logging provides structured logging utilities for agenda.
//
// It sets up the process logger (text or JSON, optional rotating file via
// lumberjack) and centralizes attribute names so every package logs request
// ids, event ids and failure kinds under the same keys.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "calendar")
//	logger.Info("event created",
//	    logging.EventID(event.Id),
//	    logging.Status(logging.StatusSuccess))
//
// User questions are free text; log them through Question, which truncates.
package logging
