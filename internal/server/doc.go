// Package server exposes the agent over HTTP.
//
// # Endpoints
//
//   - GET|POST /mcp: {"pergunta": "..."} in, {"resposta": "..."} out. GET
//     also accepts the question as the ?pergunta= query parameter.
//   - /mcp/tools: the calendar tools over MCP streamable HTTP, when enabled.
//   - /healthz, /readyz, /healthz/detailed: health checks.
//
// Prometheus metrics are served by MetricsServer on a separate address.
//
// # Errors
//
// Failures are answered with {"error": kind, "message": text}. The kind is
// the failure kind of the error and selects the status code:
//
//	validation_failure    400
//	parse_failure         422
//	not_found             404
//	agent_failure         502
//	collaborator_failure  502
//	timeout               504
//	anything else         500
//
// Every request runs under a deadline (HTTPConfig.RequestTimeout). The
// deadline reaches the model and every calendar call through the request
// context; when it expires the request fails with a timeout.
package server
