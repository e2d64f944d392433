package compute

import "github.com/storepulse/storepulse/pkg/types"

// BaselineSource records where a Baseline came from.
type BaselineSource string

const (
	// BaselineProfile is derived from the upstream store profile.
	BaselineProfile BaselineSource = "profile"
	// BaselineRolling is learned from previous polls of the store.
	BaselineRolling BaselineSource = "rolling"
)

// Baseline is a store's expected behaviour. Zero fields mean "not known"
// and make the dependent factor or check fall back to its neutral path.
type Baseline struct {
	OrdersPerHour            float64        `json:"orders_per_hour"`
	AvgProcessingTimeSeconds float64        `json:"avg_processing_time_seconds"`
	RevenuePerDay            float64        `json:"revenue_per_day"`
	AvgOrderValue            float64        `json:"avg_order_value"`
	SuccessRate              float64        `json:"success_rate"`
	Samples                  int            `json:"samples"`
	Source                   BaselineSource `json:"source"`
}

// BaselineFromProfile converts the upstream profile into a Baseline.
// It returns nil when the profile carries no usable value.
//
// avg_order_time is reported in minutes; daily_orders is spread evenly over
// 24 hours.
func BaselineFromProfile(p types.StoreProfile) *Baseline {
	b := &Baseline{
		OrdersPerHour:            nonNegative(p.DailyOrders) / 24,
		AvgProcessingTimeSeconds: nonNegative(p.AvgOrderTime) * 60,
		AvgOrderValue:            nonNegative(p.AvgOrderValue),
		SuccessRate:              clamp(p.SuccessRate, 0, 100),
		Source:                   BaselineProfile,
	}
	b.RevenuePerDay = b.AvgOrderValue * nonNegative(p.DailyOrders)
	if b.OrdersPerHour == 0 && b.AvgProcessingTimeSeconds == 0 && b.AvgOrderValue == 0 && b.SuccessRate == 0 {
		return nil
	}
	return b
}

// ObservationFromMetrics turns one poll's metrics into a single-sample
// rolling observation. Processing time is left at 0 when the poll had no
// timing samples.
func ObservationFromMetrics(m StoreMetrics) Baseline {
	return Baseline{
		OrdersPerHour:            m.OrdersPerHour,
		AvgProcessingTimeSeconds: m.AvgProcessingTimeSeconds,
		RevenuePerDay:            m.TotalRevenue,
		AvgOrderValue:            m.AvgOrderValue,
		SuccessRate:              m.SuccessRate,
		Samples:                  1,
		Source:                   BaselineRolling,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
