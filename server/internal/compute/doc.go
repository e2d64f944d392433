// Package compute derives store health signals from a window of raw orders.
//
// window.go normalises upstream orders into an immutable Window.
// aggregate.go reduces a Window into StoreMetrics relative to an explicit now.
// score.go maps StoreMetrics (plus an optional Baseline) into a 0–100
// HealthScore using the weighted formula:
// success_rate(40%) + processing_time(30%) + revenue_trend(30%).
// anomaly.go runs the stateless Detector over one or more stores.
//
// Nothing in this package reads the wall clock or keeps mutable state, so
// every function is safe to call concurrently and the same inputs always
// reproduce the same outputs.
//
// Health status thresholds: healthy ≥80, warning 50–79, critical <50.
package compute
