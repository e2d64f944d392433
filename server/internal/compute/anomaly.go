package compute

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which check produced an anomaly.
type Kind string

const (
	KindHighFailureRate Kind = "high_failure_rate"
	KindSlowProcessing  Kind = "slow_processing"
	KindOrderDrought    Kind = "order_drought"
	KindErrorSpike      Kind = "error_spike"
)

// Severity ranks an anomaly.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// anomalyNamespace seeds the name-based anomaly IDs.
var anomalyNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("storepulse.anomaly"))

// AnomalyConfig holds the detector thresholds. Zero fields take the values
// from DefaultAnomalyConfig.
type AnomalyConfig struct {
	// FailureRateThreshold is the failure rate (percent) above which
	// high_failure_rate fires.
	FailureRateThreshold float64 `yaml:"failure_rate_threshold"`
	FailureRateCritical  float64 `yaml:"failure_rate_critical"`

	// MinOrders is the order count below which rate-based checks are
	// suppressed.
	MinOrders int `yaml:"min_orders"`

	// SlowProcessingMultiple is the avg/baseline ratio above which
	// slow_processing fires.
	SlowProcessingMultiple float64 `yaml:"slow_processing_multiple"`
	SlowProcessingCritical float64 `yaml:"slow_processing_critical"`
	MinProcessingSamples   int     `yaml:"min_processing_samples"`

	// DroughtAfter is the gap since the last order after which
	// order_drought fires for a busy store.
	DroughtAfter            time.Duration `yaml:"drought_after"`
	DroughtCriticalMultiple float64       `yaml:"drought_critical_multiple"`

	// DroughtMinOrdersPerHour is the baseline volume a store needs before a
	// quiet period counts as a drought.
	DroughtMinOrdersPerHour float64 `yaml:"drought_min_orders_per_hour"`

	// ErrorSpikeShare is the share of orders (0..1) with one error type
	// above which error_spike fires.
	ErrorSpikeShare    float64 `yaml:"error_spike_share"`
	ErrorSpikeCritical float64 `yaml:"error_spike_critical"`
}

// DefaultAnomalyConfig returns the production thresholds.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		FailureRateThreshold:    20,
		FailureRateCritical:     40,
		MinOrders:               5,
		SlowProcessingMultiple:  2.0,
		SlowProcessingCritical:  3.0,
		MinProcessingSamples:    3,
		DroughtAfter:            10 * time.Minute,
		DroughtCriticalMultiple: 3,
		DroughtMinOrdersPerHour: 2.0,
		ErrorSpikeShare:         0.25,
		ErrorSpikeCritical:      0.5,
	}
}

func (c AnomalyConfig) withDefaults() AnomalyConfig {
	d := DefaultAnomalyConfig()
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = d.FailureRateThreshold
	}
	if c.FailureRateCritical <= 0 {
		c.FailureRateCritical = d.FailureRateCritical
	}
	if c.MinOrders <= 0 {
		c.MinOrders = d.MinOrders
	}
	if c.SlowProcessingMultiple <= 0 {
		c.SlowProcessingMultiple = d.SlowProcessingMultiple
	}
	if c.SlowProcessingCritical <= 0 {
		c.SlowProcessingCritical = d.SlowProcessingCritical
	}
	if c.MinProcessingSamples <= 0 {
		c.MinProcessingSamples = d.MinProcessingSamples
	}
	if c.DroughtAfter <= 0 {
		c.DroughtAfter = d.DroughtAfter
	}
	if c.DroughtCriticalMultiple <= 0 {
		c.DroughtCriticalMultiple = d.DroughtCriticalMultiple
	}
	if c.DroughtMinOrdersPerHour <= 0 {
		c.DroughtMinOrdersPerHour = d.DroughtMinOrdersPerHour
	}
	if c.ErrorSpikeShare <= 0 {
		c.ErrorSpikeShare = d.ErrorSpikeShare
	}
	if c.ErrorSpikeCritical <= 0 {
		c.ErrorSpikeCritical = d.ErrorSpikeCritical
	}
	return c
}

// Anomaly is one detected deviation from normal operation.
type Anomaly struct {
	ID         string             `json:"id"`
	StoreID    string             `json:"store_id"`
	Kind       Kind               `json:"kind"`
	Severity   Severity           `json:"severity"`
	Message    string             `json:"message"`
	DetectedAt time.Time          `json:"detected_at"`
	Value      float64            `json:"value"`
	Threshold  float64            `json:"threshold"`
	Context    map[string]float64 `json:"context,omitempty"`
}

// StoreInput is everything the detector needs for one store.
type StoreInput struct {
	Metrics StoreMetrics

	// LastOrderAt overrides Metrics.LastOrderAt when non-nil.
	LastOrderAt *time.Time

	// Baseline is nil when the store's normal behaviour is unknown.
	Baseline *Baseline
}

// Detector evaluates the anomaly checks. It holds no state between calls.
type Detector struct {
	cfg AnomalyConfig
}

// NewDetector returns a Detector using cfg, with unset fields defaulted.
func NewDetector(cfg AnomalyConfig) Detector {
	return Detector{cfg: cfg.withDefaults()}
}

// Config returns the effective thresholds.
func (d Detector) Config() AnomalyConfig { return d.cfg }

// Detect evaluates every store independently. Anomalies are grouped by
// store in input order. The result is never nil.
func (d Detector) Detect(inputs []StoreInput, now time.Time) []Anomaly {
	out := []Anomaly{}
	for _, in := range inputs {
		out = append(out, d.DetectStore(in, now)...)
	}
	return out
}

// DetectStore runs all checks for one store in kind order:
// high_failure_rate, slow_processing, order_drought, error_spike.
func (d Detector) DetectStore(in StoreInput, now time.Time) []Anomaly {
	out := []Anomaly{}
	if a, ok := d.checkFailureRate(in, now); ok {
		out = append(out, a)
	}
	if a, ok := d.checkSlowProcessing(in, now); ok {
		out = append(out, a)
	}
	if a, ok := d.checkDrought(in, now); ok {
		out = append(out, a)
	}
	out = append(out, d.checkErrorSpikes(in, now)...)
	return out
}

func (d Detector) checkFailureRate(in StoreInput, now time.Time) (Anomaly, bool) {
	m := in.Metrics
	if m.TotalOrders24h < d.cfg.MinOrders || m.FailureRate <= d.cfg.FailureRateThreshold {
		return Anomaly{}, false
	}
	sev := SeverityWarning
	if m.FailureRate >= d.cfg.FailureRateCritical {
		sev = SeverityCritical
	}
	return newAnomaly(m.StoreID, KindHighFailureRate, "", sev, now,
		fmt.Sprintf("failure rate %.1f%% exceeds %.1f%% over %d orders", m.FailureRate, d.cfg.FailureRateThreshold, m.TotalOrders24h),
		m.FailureRate, d.cfg.FailureRateThreshold,
		map[string]float64{
			"failed_orders":    float64(m.FailedOrders),
			"total_orders":     float64(m.TotalOrders),
			"total_orders_24h": float64(m.TotalOrders24h),
		}), true
}

func (d Detector) checkSlowProcessing(in StoreInput, now time.Time) (Anomaly, bool) {
	m, b := in.Metrics, in.Baseline
	if b == nil || b.AvgProcessingTimeSeconds <= 0 || m.ProcessingSamples < d.cfg.MinProcessingSamples {
		return Anomaly{}, false
	}
	ratio := m.AvgProcessingTimeSeconds / b.AvgProcessingTimeSeconds
	if ratio <= d.cfg.SlowProcessingMultiple {
		return Anomaly{}, false
	}
	sev := SeverityWarning
	if ratio >= d.cfg.SlowProcessingCritical {
		sev = SeverityCritical
	}
	return newAnomaly(m.StoreID, KindSlowProcessing, "", sev, now,
		fmt.Sprintf("avg processing %.0fs is %.1fx the baseline %.0fs", m.AvgProcessingTimeSeconds, ratio, b.AvgProcessingTimeSeconds),
		ratio, d.cfg.SlowProcessingMultiple,
		map[string]float64{
			"avg_processing_time_seconds":      m.AvgProcessingTimeSeconds,
			"baseline_processing_time_seconds": b.AvgProcessingTimeSeconds,
			"processing_samples":               float64(m.ProcessingSamples),
		}), true
}

func (d Detector) checkDrought(in StoreInput, now time.Time) (Anomaly, bool) {
	m, b := in.Metrics, in.Baseline
	if b == nil || b.OrdersPerHour < d.cfg.DroughtMinOrdersPerHour {
		return Anomaly{}, false
	}
	threshold := d.cfg.DroughtAfter.Minutes()

	last := in.LastOrderAt
	if last == nil {
		last = m.LastOrderAt
	}
	if last == nil {
		// Future-dated orders still count as activity.
		if m.TotalOrders24h > 0 {
			return Anomaly{}, false
		}
		msg := fmt.Sprintf("no orders in the window, baseline %.1f orders/hour", b.OrdersPerHour)
		if m.TotalOrders > 0 {
			msg = fmt.Sprintf("no datable orders in the window (%d orders, %d with unusable timestamps), baseline %.1f orders/hour",
				m.TotalOrders, m.InvalidTimestamps, b.OrdersPerHour)
		}
		return newAnomaly(m.StoreID, KindOrderDrought, "", SeverityCritical, now,
			msg,
			0, threshold,
			map[string]float64{
				"baseline_orders_per_hour": b.OrdersPerHour,
				"total_orders":             float64(m.TotalOrders),
			}), true
	}

	gap := now.Sub(*last)
	if gap <= d.cfg.DroughtAfter {
		return Anomaly{}, false
	}
	sev := SeverityWarning
	if gap.Minutes() >= threshold*d.cfg.DroughtCriticalMultiple {
		sev = SeverityCritical
	}
	return newAnomaly(m.StoreID, KindOrderDrought, "", sev, now,
		fmt.Sprintf("no orders for %.0f minutes, baseline %.1f orders/hour", gap.Minutes(), b.OrdersPerHour),
		gap.Minutes(), threshold,
		map[string]float64{
			"minutes_since_last_order": gap.Minutes(),
			"baseline_orders_per_hour": b.OrdersPerHour,
			"expected_orders":          b.OrdersPerHour * gap.Hours(),
		}), true
}

func (d Detector) checkErrorSpikes(in StoreInput, now time.Time) []Anomaly {
	m := in.Metrics
	if m.TotalOrders < d.cfg.MinOrders || len(m.ErrorBreakdown) == 0 {
		return nil
	}
	errTypes := make([]string, 0, len(m.ErrorBreakdown))
	for t := range m.ErrorBreakdown {
		errTypes = append(errTypes, t)
	}
	sort.Strings(errTypes)

	var out []Anomaly
	for _, t := range errTypes {
		count := m.ErrorBreakdown[t]
		share := float64(count) / float64(m.TotalOrders)
		if share <= d.cfg.ErrorSpikeShare {
			continue
		}
		sev := SeverityWarning
		if share >= d.cfg.ErrorSpikeCritical {
			sev = SeverityCritical
		}
		out = append(out, newAnomaly(m.StoreID, KindErrorSpike, t, sev, now,
			fmt.Sprintf("error %q on %d of %d orders (%.0f%%)", t, count, m.TotalOrders, share*100),
			share, d.cfg.ErrorSpikeShare,
			map[string]float64{
				"error_count":  float64(count),
				"total_orders": float64(m.TotalOrders),
			}))
	}
	return out
}

// newAnomaly builds an Anomaly whose ID is derived from the store, kind,
// subject and detection instant, so re-running detection on the same
// inputs yields the same IDs.
func newAnomaly(storeID string, kind Kind, subject string, sev Severity, now time.Time,
	msg string, value, threshold float64, ctx map[string]float64) Anomaly {
	name := storeID + "|" + string(kind) + "|" + subject + "|" + now.UTC().Format(time.RFC3339Nano)
	return Anomaly{
		ID:         uuid.NewSHA1(anomalyNamespace, []byte(name)).String(),
		StoreID:    storeID,
		Kind:       kind,
		Severity:   sev,
		Message:    msg,
		DetectedAt: now,
		Value:      value,
		Threshold:  threshold,
		Context:    ctx,
	}
}
