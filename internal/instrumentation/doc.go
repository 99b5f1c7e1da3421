// Package instrumentation provides OpenTelemetry metrics, tracing and
// audit logging for the agenda server.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route and status
//   - http_request_duration_seconds: request durations
//
// Google Calendar:
//   - google_api_operations_total: calls by service, operation and status
//   - google_api_operation_duration_seconds: call durations
//
// Tools and agent:
//   - tool_invocations_total / tool_duration_seconds: calendar tool calls by tool and status
//   - agent_runs_total / agent_run_duration_seconds: agent runs by provider and status
//   - agent_tool_steps: tool calls made per agent run
//   - date_resolutions_total: natural-language date resolutions by result
//
// With METRICS_DETAILED_LABELS=true the failure kind is attached to tool
// and agent metrics.
//
// # Tracing
//
// Spans are created for each agent run (agent.ask), each tool call
// (tool.<name>) and each Google API call (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: agenda)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_ARGUMENTS: audit log switches
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Since(start))
package instrumentation
