// Package instrumentation owns the Prometheus registry of the server: store
// health gauges, anomaly and upstream counters, and HTTP request metrics.
//
// All Metrics methods are no-ops on a nil receiver.
package instrumentation

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/storepulse/storepulse/server/internal/compute"
)

const namespace = "storepulse"

// StoreLabel is the label carried by every per-store series.
const StoreLabel = "store_id"

// Metrics is the server's metric set, registered on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	HealthScore       *prometheus.GaugeVec
	Orders            *prometheus.GaugeVec
	SuccessRate       *prometheus.GaugeVec
	FailureRate       *prometheus.GaugeVec
	ProcessingSeconds *prometheus.GaugeVec
	Revenue           *prometheus.GaugeVec

	Anomalies        *prometheus.CounterVec
	StoreFailures    *prometheus.CounterVec
	SkippedOrders    prometheus.Counter
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates and registers all metrics, plus the Go and process collectors.
func New() *Metrics {
	r := prometheus.NewRegistry()
	storeGauge := func(name, help string, extra ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "store", Name: name, Help: help,
		}, append([]string{StoreLabel}, extra...))
	}

	m := &Metrics{
		reg:               r,
		HealthScore:       storeGauge("health_score", "Composite health score (0-100)."),
		Orders:            storeGauge("orders", "Orders in the store window by sub-window.", "window"),
		SuccessRate:       storeGauge("success_rate_percent", "Completed orders as a percentage of the window."),
		FailureRate:       storeGauge("failure_rate_percent", "Failed orders as a percentage of the window."),
		ProcessingSeconds: storeGauge("avg_processing_seconds", "Average order processing time in seconds."),
		Revenue:           storeGauge("revenue", "Total revenue in the store window."),

		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "anomalies_detected_total",
			Help: "Anomalies raised by kind and severity.",
		}, []string{"kind", "severity"}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_failures_total",
			Help: "Per-store evaluation failures by reason.",
		}, []string{"reason"}),
		SkippedOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_orders_skipped_total",
			Help: "Order records dropped because they could not be decoded.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_requests_total",
			Help: "Upstream requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "upstream_request_duration_seconds",
			Help:    "Upstream request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "API requests by route pattern and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "API request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HealthScore, m.Orders, m.SuccessRate, m.FailureRate, m.ProcessingSeconds, m.Revenue,
		m.Anomalies, m.StoreFailures, m.SkippedOrders,
		m.UpstreamRequests, m.UpstreamLatency, m.CacheLookups,
		m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// Handler serves the whole registry in the Prometheus exposition format.
// A nil Metrics serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveStore publishes a store's latest metrics and score.
func (m *Metrics) ObserveStore(sm compute.StoreMetrics, hs compute.HealthScore) {
	if m == nil {
		return
	}
	id := sm.StoreID
	m.HealthScore.WithLabelValues(id).Set(hs.Score)
	m.Orders.WithLabelValues(id, "all").Set(float64(sm.TotalOrders))
	m.Orders.WithLabelValues(id, "24h").Set(float64(sm.TotalOrders24h))
	m.Orders.WithLabelValues(id, "1h").Set(float64(sm.TotalOrders1h))
	m.SuccessRate.WithLabelValues(id).Set(sm.SuccessRate)
	m.FailureRate.WithLabelValues(id).Set(sm.FailureRate)
	m.ProcessingSeconds.WithLabelValues(id).Set(sm.AvgProcessingTimeSeconds)
	m.Revenue.WithLabelValues(id).Set(sm.TotalRevenue)
}

// ObserveAnomalies counts each anomaly by kind and severity.
func (m *Metrics) ObserveAnomalies(as []compute.Anomaly) {
	if m == nil {
		return
	}
	for _, a := range as {
		m.Anomalies.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
	}
}

// ObserveStoreFailure counts a store that could not be evaluated.
func (m *Metrics) ObserveStoreFailure(reason string) {
	if m == nil {
		return
	}
	m.StoreFailures.WithLabelValues(reason).Inc()
}

// ObserveSkippedOrders counts undecodable order records.
func (m *Metrics) ObserveSkippedOrders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SkippedOrders.Add(float64(n))
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// StoreExposition renders only the series labelled with storeID, in the
// Prometheus text format. The second return value is the content type.
// A nil Metrics renders an empty body.
func (m *Metrics) StoreExposition(storeID string) ([]byte, string, error) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	if m == nil {
		return nil, string(format), nil
	}
	mfs, err := m.reg.Gather()
	if err != nil {
		return nil, "", fmt.Errorf("instrumentation: gather: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range filterByStore(mfs, storeID) {
		if err := enc.Encode(mf); err != nil {
			return nil, "", fmt.Errorf("instrumentation: encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), string(format), nil
}

// filterByStore keeps the metrics of families that carry StoreLabel and
// whose label value is storeID. Families without the label are dropped.
func filterByStore(mfs []*dto.MetricFamily, storeID string) []*dto.MetricFamily {
	out := make([]*dto.MetricFamily, 0, len(mfs))
	for _, mf := range mfs {
		var kept []*dto.Metric
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == StoreLabel && l.GetValue() == storeID {
					kept = append(kept, metric)
					break
				}
			}
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, &dto.MetricFamily{
			Name:   mf.Name,
			Help:   mf.Help,
			Type:   mf.Type,
			Metric: kept,
		})
	}
	return out
}
