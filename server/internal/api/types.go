package api

import "time"

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes.
const (
	codeStoreNotFound    = "store_not_found"
	codeUpstreamError    = "upstream_error"
	codeUpstreamTimeout  = "upstream_timeout"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternal         = "internal_error"
)

// RootResponse is the payload for GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// DiagnosticsResponse is the payload for GET /api/diagnostics/store/{store_id}.
type DiagnosticsResponse struct {
	StoreID        string           `json:"store_id"`
	Score          float64          `json:"score"`
	Status         string           `json:"status"`
	BaselineSource string           `json:"baseline_source,omitempty"`
	Hints          []DiagnosticHint `json:"hints"`
	Timestamp      time.Time        `json:"timestamp"`
}

// FailedStoresHeader lists, comma separated, the stores an all-store anomaly
// scan could not evaluate.
const FailedStoresHeader = "X-StorePulse-Failed-Stores"
