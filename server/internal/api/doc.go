// Package api implements the HTTP API of storepulse-server.
//
// New(svc, opts) returns an http.Handler that serves:
//
//	GET /                                         service name and version
//	GET /health                                   liveness
//	GET /api/metrics/store/{store_id}             StoreMetrics
//	GET /api/metrics/store/{store_id}/prometheus  the store's gauges, Prometheus text format
//	GET /api/health-score/{store_id}              HealthScore
//	GET /api/diagnostics/store/{store_id}         score plus plain-language hints
//	GET /api/anomalies/detect[?store_id=]         []Anomaly, all stores when omitted
//	GET /api/dashboard/store/{store_id}           {store, orders} as fetched
//	GET /api/dashboard/summary                    totals across all stores
//	GET /metrics                                  process metrics
//
// All JSON errors have the shape {"error": code, "message": text}: 404 for
// an unknown store or route, 405 for any method but GET, 502 when the
// upstream provider fails and 504 when it times out.
package api
