package instrumentation

// Cardinality management helpers for metrics.
//
// Label values must come from small closed sets. Request paths and failure
// kinds are client-controlled, so they pass through these helpers first.

// knownRoutes are the paths recorded verbatim in HTTP metrics.
var knownRoutes = map[string]bool{
	"/mcp":              true,
	"/mcp/tools":        true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
}

// RouteLabel maps a request path to a bounded label value. Unknown paths
// collapse to "other".
//
// Example:
//
//	RouteLabel("/mcp")        // "/mcp"
//	RouteLabel("/wp-login")   // "other"
func RouteLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// Google Calendar operation names used in google_api_operations_total.
const (
	OperationList   = "list"
	OperationInsert = "insert"
	OperationPatch  = "patch"
	OperationDelete = "delete"
)
