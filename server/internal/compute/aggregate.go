package compute

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storepulse/storepulse/pkg/types"
)

// Sub-window sizes used for the recent-volume counters.
const (
	DaySubWindow  = 24 * time.Hour
	HourSubWindow = time.Hour
)

// unknownErrorType buckets error orders that carry no error_type.
const unknownErrorType = "unknown"

// StoreMetrics is the aggregate performance summary of one store's window.
// Rates are percentages in [0, 100].
type StoreMetrics struct {
	StoreID string `json:"store_id"`

	TotalOrders    int `json:"total_orders"`
	TotalOrders24h int `json:"total_orders_24h"`
	TotalOrders1h  int `json:"total_orders_1h"`

	CompletedOrders int `json:"completed_orders"`
	FailedOrders    int `json:"failed_orders"`
	CancelledOrders int `json:"cancelled_orders"`
	PendingOrders   int `json:"pending_orders"`
	UnknownOrders   int `json:"unknown_orders"`

	SuccessRate      float64 `json:"success_rate"`
	FailureRate      float64 `json:"failure_rate"`
	CancellationRate float64 `json:"cancellation_rate"`

	// AvgProcessingTimeSeconds is 0 when ProcessingSamples is 0; callers
	// must check the sample count before trusting it.
	AvgProcessingTimeSeconds float64 `json:"avg_processing_time_seconds"`
	AvgProcessingTimeMinutes float64 `json:"avg_processing_time_minutes"`
	ProcessingSamples        int     `json:"processing_samples"`

	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`

	// OrdersPerHour is TotalOrders24h spread evenly over a day.
	OrdersPerHour float64 `json:"orders_per_hour"`

	ErrorBreakdown    map[string]int `json:"error_breakdown"`
	ErrorOrders       int            `json:"error_orders"`
	InvalidTimestamps int            `json:"invalid_timestamps"`

	LastOrderAt *time.Time `json:"last_order_at"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ComputeMetrics reduces w into StoreMetrics as observed at now.
//
// The result depends only on w and now. A nil or empty window yields zero
// counts and rates with an empty error breakdown.
func ComputeMetrics(w *Window, now time.Time) StoreMetrics {
	m := StoreMetrics{
		StoreID:        w.StoreID(),
		ErrorBreakdown: map[string]int{},
		Timestamp:      now,
	}
	if w.Len() == 0 {
		return m
	}

	revenue := decimal.Zero
	var processingMean float64
	var last time.Time

	for _, e := range w.entries {
		m.TotalOrders++

		switch e.Status {
		case types.StatusCompleted:
			m.CompletedOrders++
		case types.StatusFailed:
			m.FailedOrders++
		case types.StatusCancelled:
			m.CancelledOrders++
		case types.StatusPending:
			m.PendingOrders++
		default:
			m.UnknownOrders++
		}

		if e.HasTime {
			age := now.Sub(e.CreatedAt)
			if age < DaySubWindow {
				m.TotalOrders24h++
			}
			if age < HourSubWindow {
				m.TotalOrders1h++
			}
			if !e.CreatedAt.After(now) && e.CreatedAt.After(last) {
				last = e.CreatedAt
			}
		} else {
			m.InvalidTimestamps++
		}

		revenue = revenue.Add(e.Amount)

		if e.HasProcessing {
			m.ProcessingSamples++
			// Running mean; a plain sum can overflow to +Inf.
			processingMean += (e.ProcessingSeconds - processingMean) / float64(m.ProcessingSamples)
		}

		if e.HasError {
			m.ErrorOrders++
			m.ErrorBreakdown[e.ErrorType]++
		}
	}

	m.SuccessRate = percent(m.CompletedOrders, m.TotalOrders)
	m.FailureRate = percent(m.FailedOrders, m.TotalOrders)
	m.CancellationRate = percent(m.CancelledOrders, m.TotalOrders)

	if m.ProcessingSamples > 0 {
		m.AvgProcessingTimeSeconds = processingMean
		m.AvgProcessingTimeMinutes = processingMean / 60
	}

	m.TotalRevenue = DecimalFloat(revenue)
	m.AvgOrderValue = DecimalFloat(revenue.Div(decimal.NewFromInt(int64(m.TotalOrders))))
	m.OrdersPerHour = float64(m.TotalOrders24h) / 24

	if !last.IsZero() {
		t := last
		m.LastOrderAt = &t
	}
	return m
}

// percent returns n/total as a percentage, or 0 when total is 0.
// DecimalFloat converts d to float64, saturating at ±math.MaxFloat64 so the
// result is always JSON-encodable.
func DecimalFloat(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	switch {
	case math.IsInf(f, 1):
		return math.MaxFloat64
	case math.IsInf(f, -1):
		return -math.MaxFloat64
	}
	return f
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return clamp(float64(n)/float64(total)*100, 0, 100)
}
