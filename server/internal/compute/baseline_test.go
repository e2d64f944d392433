package compute

import (
	"testing"

	"github.com/storepulse/storepulse/pkg/types"
)

func TestBaselineFromProfile(t *testing.T) {
	// store_0001 in the mock upstream: 27 min, $29, 196/day, 98%.
	b := BaselineFromProfile(types.StoreProfile{AvgOrderTime: 27, AvgOrderValue: 29, DailyOrders: 196, SuccessRate: 98})
	if b == nil {
		t.Fatal("expected a baseline")
	}
	if b.Source != BaselineProfile {
		t.Errorf("Source = %q", b.Source)
	}
	if !almostEqual(b.AvgProcessingTimeSeconds, 1620, 1e-9) {
		t.Errorf("AvgProcessingTimeSeconds = %v, want 1620", b.AvgProcessingTimeSeconds)
	}
	if !almostEqual(b.OrdersPerHour, 196.0/24, 1e-9) {
		t.Errorf("OrdersPerHour = %v", b.OrdersPerHour)
	}
	if !almostEqual(b.RevenuePerDay, 29*196, 1e-9) {
		t.Errorf("RevenuePerDay = %v", b.RevenuePerDay)
	}
}

func TestBaselineFromProfile_Empty(t *testing.T) {
	if b := BaselineFromProfile(types.StoreProfile{}); b != nil {
		t.Errorf("empty profile should give nil, got %+v", b)
	}
	if b := BaselineFromProfile(types.StoreProfile{DailyOrders: -4}); b != nil {
		t.Errorf("negative profile should give nil, got %+v", b)
	}
}

func TestObservationFromMetrics(t *testing.T) {
	m := StoreMetrics{OrdersPerHour: 2, AvgProcessingTimeSeconds: 300, TotalRevenue: 480, AvgOrderValue: 10, SuccessRate: 90}
	o := ObservationFromMetrics(m)
	if o.Samples != 1 || o.Source != BaselineRolling {
		t.Errorf("observation bookkeeping = %+v", o)
	}
	if o.RevenuePerDay != 480 || o.OrdersPerHour != 2 {
		t.Errorf("observation values = %+v", o)
	}
}
