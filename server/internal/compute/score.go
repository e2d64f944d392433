package compute

import (
	"math"
	"time"
)

// Weight constants for the health score formula.
// They must sum to 1.0.
const (
	WeightSuccessRate    = 0.40
	WeightProcessingTime = 0.30
	WeightRevenueTrend   = 0.30
)

// Status constants returned by the scorer.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Thresholds that map a score to a status.
const (
	StatusHealthyThreshold = 80.0
	StatusWarningThreshold = 50.0
)

// NeutralFactorScore is used for any factor that lacks the data to be judged.
const NeutralFactorScore = 50.0

// Factor keys in HealthScore.Factors and HealthScore.Weights.
const (
	FactorSuccessRate    = "success_rate"
	FactorProcessingTime = "processing_time"
	FactorRevenueTrend   = "revenue_trend"
)

// ScoreConfig holds the tunable factor curves. Zero fields take the values
// from DefaultScoreConfig.
type ScoreConfig struct {
	// SuccessFloor is the success rate (percent) at and above which the
	// success factor equals the rate itself.
	SuccessFloor float64 `yaml:"success_floor"`

	// SuccessPenaltySlope is how many factor points are lost per
	// percentage point below SuccessFloor.
	SuccessPenaltySlope float64 `yaml:"success_penalty_slope"`

	// GlobalProcessingBaselineSeconds stands in when the store has no
	// baseline processing time.
	GlobalProcessingBaselineSeconds float64 `yaml:"global_processing_baseline_seconds"`

	// ProcessingZeroMultiple is the avg/baseline ratio at which the
	// processing factor reaches 0.
	ProcessingZeroMultiple float64 `yaml:"processing_zero_multiple"`

	// RevenueDropFloor is the current/baseline ratio at which the revenue
	// trend factor reaches 0.
	RevenueDropFloor float64 `yaml:"revenue_drop_floor"`
}

// DefaultScoreConfig returns the production factor curves.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		SuccessFloor:                    80,
		SuccessPenaltySlope:             2,
		GlobalProcessingBaselineSeconds: 1200,
		ProcessingZeroMultiple:          2,
		RevenueDropFloor:                0.5,
	}
}

func (c ScoreConfig) withDefaults() ScoreConfig {
	d := DefaultScoreConfig()
	if c.SuccessFloor <= 0 || c.SuccessFloor > 100 {
		c.SuccessFloor = d.SuccessFloor
	}
	if c.SuccessPenaltySlope <= 0 {
		c.SuccessPenaltySlope = d.SuccessPenaltySlope
	}
	if c.GlobalProcessingBaselineSeconds <= 0 {
		c.GlobalProcessingBaselineSeconds = d.GlobalProcessingBaselineSeconds
	}
	if c.ProcessingZeroMultiple <= 1 {
		c.ProcessingZeroMultiple = d.ProcessingZeroMultiple
	}
	if c.RevenueDropFloor <= 0 || c.RevenueDropFloor >= 1 {
		c.RevenueDropFloor = d.RevenueDropFloor
	}
	return c
}

// HealthScore is the composite health of one store.
type HealthScore struct {
	StoreID string `json:"store_id"`

	// Score is in [0, 100], rounded to two decimals.
	Score  float64 `json:"score"`
	Status string  `json:"status"`

	// Factors holds each factor's contribution before weighting, in [0, 100].
	Factors map[string]float64 `json:"factors"`
	Weights map[string]float64 `json:"weights"`

	// BaselineSource is empty when no baseline was available.
	BaselineSource BaselineSource `json:"baseline_source,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Scorer computes health scores with a fixed ScoreConfig.
// The zero value is not usable; build one with NewScorer.
type Scorer struct {
	cfg ScoreConfig
}

// NewScorer returns a Scorer using cfg, with unset fields defaulted.
func NewScorer(cfg ScoreConfig) Scorer {
	return Scorer{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (s Scorer) Config() ScoreConfig { return s.cfg }

// Score computes the health score using DefaultScoreConfig.
func Score(m StoreMetrics, b *Baseline) HealthScore {
	return NewScorer(DefaultScoreConfig()).Score(m, b)
}

// Score computes the health score of m against the optional baseline b.
//
// Formula:
//
//	score = success_factor    * 0.40 +
//	        processing_factor * 0.30 +
//	        revenue_factor    * 0.30
//
// Each factor is in [0, 100]; a factor without data scores
// NeutralFactorScore. The timestamp is copied from m, so the result is a
// pure function of its inputs.
func (s Scorer) Score(m StoreMetrics, b *Baseline) HealthScore {
	success := s.successFactor(m)
	processing := s.processingFactor(m, b)
	revenue := s.revenueFactor(m, b)

	score := composite(success, processing, revenue)

	hs := HealthScore{
		StoreID: m.StoreID,
		Score:   score,
		Status:  statusFromScore(score),
		Factors: map[string]float64{
			FactorSuccessRate:    roundTo(success, 2),
			FactorProcessingTime: roundTo(processing, 2),
			FactorRevenueTrend:   roundTo(revenue, 2),
		},
		Weights: map[string]float64{
			FactorSuccessRate:    WeightSuccessRate,
			FactorProcessingTime: WeightProcessingTime,
			FactorRevenueTrend:   WeightRevenueTrend,
		},
		Timestamp: m.Timestamp,
	}
	if b != nil {
		hs.BaselineSource = b.Source
	}
	return hs
}

// successFactor rewards the success rate directly above the floor and
// penalises it steeply below.
func (s Scorer) successFactor(m StoreMetrics) float64 {
	if m.TotalOrders == 0 {
		return NeutralFactorScore
	}
	rate := clamp(m.SuccessRate, 0, 100)
	if rate >= s.cfg.SuccessFloor {
		return rate
	}
	return clamp(s.cfg.SuccessFloor-s.cfg.SuccessPenaltySlope*(s.cfg.SuccessFloor-rate), 0, 100)
}

// processingFactor is 100 at or below the baseline and falls linearly to 0
// at ProcessingZeroMultiple times the baseline.
func (s Scorer) processingFactor(m StoreMetrics, b *Baseline) float64 {
	if m.ProcessingSamples == 0 {
		return NeutralFactorScore
	}
	base := s.cfg.GlobalProcessingBaselineSeconds
	if b != nil && b.AvgProcessingTimeSeconds > 0 {
		base = b.AvgProcessingTimeSeconds
	}
	ratio := m.AvgProcessingTimeSeconds / base
	zero := s.cfg.ProcessingZeroMultiple
	switch {
	case ratio <= 1:
		return 100
	case ratio >= zero:
		return 0
	default:
		return 100 * (zero - ratio) / (zero - 1)
	}
}

// revenueFactor compares current revenue (or volume) with the baseline.
func (s Scorer) revenueFactor(m StoreMetrics, b *Baseline) float64 {
	if b == nil {
		return NeutralFactorScore
	}
	var ratio float64
	switch {
	case b.RevenuePerDay > 0:
		ratio = m.TotalRevenue / b.RevenuePerDay
	case b.OrdersPerHour > 0:
		ratio = m.OrdersPerHour / b.OrdersPerHour
	default:
		return NeutralFactorScore
	}
	floor := s.cfg.RevenueDropFloor
	switch {
	case ratio >= 1:
		return 100
	case ratio <= floor:
		return 0
	default:
		return 100 * (ratio - floor) / (1 - floor)
	}
}

// composite weights the three factors into a score clamped to [0, 100].
func composite(success, processing, revenue float64) float64 {
	score := clamp(success, 0, 100)*WeightSuccessRate +
		clamp(processing, 0, 100)*WeightProcessingTime +
		clamp(revenue, 0, 100)*WeightRevenueTrend
	return roundTo(clamp(score, 0, 100), 2)
}

// statusFromScore maps a numeric score to a named status.
func statusFromScore(score float64) string {
	switch {
	case score >= StatusHealthyThreshold:
		return StatusHealthy
	case score >= StatusWarningThreshold:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// clamp restricts v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
