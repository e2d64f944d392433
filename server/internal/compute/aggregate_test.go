package compute

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storepulse/storepulse/pkg/types"
)

func TestComputeMetrics_EmptyWindow(t *testing.T) {
	for _, w := range []*Window{nil, NewWindow("s1", nil)} {
		m := ComputeMetrics(w, baseTime)
		if m.TotalOrders != 0 || m.SuccessRate != 0 || m.FailureRate != 0 ||
			m.AvgOrderValue != 0 || m.AvgProcessingTimeSeconds != 0 || m.OrdersPerHour != 0 {
			t.Errorf("empty window metrics not zero: %+v", m)
		}
		if m.ErrorBreakdown == nil {
			t.Error("ErrorBreakdown should be an empty map, not nil")
		}
		if m.LastOrderAt != nil {
			t.Error("LastOrderAt should be nil for an empty window")
		}
		if !m.Timestamp.Equal(baseTime) {
			t.Errorf("Timestamp = %v, want %v", m.Timestamp, baseTime)
		}
	}
}

func TestComputeMetrics_MissingAmounts(t *testing.T) {
	orders := []types.Order{
		order("a", types.StatusCompleted, 10, "39.92"),
		{ID: "b", Status: types.StatusCompleted, CreatedAt: tick(-20).Format(time.RFC3339)},
		order("c", types.StatusCompleted, 30, "not-a-number"),
		order("d", types.StatusCompleted, 40, "0.08"),
	}
	m := ComputeMetrics(NewWindow("s1", orders), baseTime)

	if m.TotalRevenue != 40 {
		t.Errorf("TotalRevenue = %v, want exactly 40", m.TotalRevenue)
	}
	if m.AvgOrderValue != 10 {
		t.Errorf("AvgOrderValue = %v, want 10", m.AvgOrderValue)
	}
}

func TestComputeMetrics_CategoryAccounting(t *testing.T) {
	orders := []types.Order{
		order("1", types.StatusCompleted, 1, "1"),
		order("2", types.StatusCompleted, 2, "1"),
		order("3", types.StatusFailed, 3, "1"),
		order("4", types.StatusCancelled, 4, "1"),
		order("5", types.StatusPending, 5, "1"),
		order("6", "weird", 6, "1"),
		order("7", "", 7, "1"),
		order("8", types.StatusFailed, 8, "1"),
	}
	m := ComputeMetrics(NewWindow("s1", orders), baseTime)

	sum := m.CompletedOrders + m.FailedOrders + m.CancelledOrders + m.PendingOrders + m.UnknownOrders
	if sum != m.TotalOrders {
		t.Errorf("category counts sum to %d, total is %d", sum, m.TotalOrders)
	}
	if m.UnknownOrders != 2 {
		t.Errorf("UnknownOrders = %d, want 2", m.UnknownOrders)
	}

	other := percent(m.PendingOrders+m.UnknownOrders, m.TotalOrders)
	total := m.SuccessRate + m.FailureRate + m.CancellationRate + other
	if !almostEqual(total, 100, 1e-9) {
		t.Errorf("rate shares sum to %v, want 100", total)
	}
	if !almostEqual(m.SuccessRate, 25, 1e-9) || !almostEqual(m.FailureRate, 25, 1e-9) {
		t.Errorf("success=%v failure=%v, want 25/25", m.SuccessRate, m.FailureRate)
	}
}

func TestComputeMetrics_SubWindows(t *testing.T) {
	orders := []types.Order{
		order("recent", types.StatusCompleted, 30, "1"),
		order("hour-edge", types.StatusCompleted, 60, "1"),
		order("day", types.StatusCompleted, 23*60, "1"),
		order("day-edge", types.StatusCompleted, 24*60, "1"),
		order("future", types.StatusCompleted, -5, "1"),
		{ID: "undated", Status: types.StatusCompleted, CreatedAt: "garbage"},
	}
	m := ComputeMetrics(NewWindow("s1", orders), baseTime)

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"total", m.TotalOrders, 6},
		{"24h", m.TotalOrders24h, 4},
		{"1h", m.TotalOrders1h, 2},
		{"invalid timestamps", m.InvalidTimestamps, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}

	if !almostEqual(m.OrdersPerHour, 4.0/24, 1e-12) {
		t.Errorf("OrdersPerHour = %v, want %v", m.OrdersPerHour, 4.0/24)
	}
	if m.LastOrderAt == nil || !m.LastOrderAt.Equal(tick(-30)) {
		t.Errorf("LastOrderAt = %v, want %v (future order ignored)", m.LastOrderAt, tick(-30))
	}
}

func TestComputeMetrics_ProcessingAndErrors(t *testing.T) {
	payment := "payment_failed"
	empty := ""
	orders := []types.Order{
		{ID: "1", Status: types.StatusCompleted, CreatedAt: tick(-1).Format(time.RFC3339), ProcessingTimeSeconds: types.NewSeconds(600)},
		{ID: "2", Status: types.StatusCompleted, CreatedAt: tick(-2).Format(time.RFC3339), ProcessingTimeSeconds: types.NewSeconds(1200)},
		{ID: "3", Status: types.StatusFailed, CreatedAt: tick(-3).Format(time.RFC3339), HasError: true, ErrorType: &payment},
		{ID: "4", Status: types.StatusFailed, CreatedAt: tick(-4).Format(time.RFC3339), HasError: true, ErrorType: &empty},
		{ID: "5", Status: types.StatusFailed, CreatedAt: tick(-5).Format(time.RFC3339), HasError: true},
		// error_type without has_error is ignored
		{ID: "6", Status: types.StatusCompleted, CreatedAt: tick(-6).Format(time.RFC3339), ErrorType: &payment},
	}
	m := ComputeMetrics(NewWindow("s1", orders), baseTime)

	if m.ProcessingSamples != 2 {
		t.Errorf("ProcessingSamples = %d, want 2", m.ProcessingSamples)
	}
	if !almostEqual(m.AvgProcessingTimeSeconds, 900, 1e-9) {
		t.Errorf("AvgProcessingTimeSeconds = %v, want 900", m.AvgProcessingTimeSeconds)
	}
	if !almostEqual(m.AvgProcessingTimeMinutes, 15, 1e-9) {
		t.Errorf("AvgProcessingTimeMinutes = %v, want 15", m.AvgProcessingTimeMinutes)
	}
	if m.ErrorOrders != 3 {
		t.Errorf("ErrorOrders = %d, want 3", m.ErrorOrders)
	}
	if m.ErrorBreakdown[payment] != 1 || m.ErrorBreakdown[unknownErrorType] != 2 {
		t.Errorf("ErrorBreakdown = %v", m.ErrorBreakdown)
	}
}

func TestComputeMetrics_Idempotent(t *testing.T) {
	w := NewWindow("s1", []types.Order{
		order("1", types.StatusCompleted, 1, "12.34"),
		order("2", types.StatusFailed, 90, "5"),
	})
	a := ComputeMetrics(w, baseTime)
	b := ComputeMetrics(w, baseTime)
	if a.TotalRevenue != b.TotalRevenue || a.SuccessRate != b.SuccessRate || a.TotalOrders1h != b.TotalOrders1h {
		t.Errorf("repeated computation differs: %+v vs %+v", a, b)
	}
}

func TestComputeMetrics_NonFiniteInputsStayEncodable(t *testing.T) {
	huge := order("huge", types.StatusCompleted, 5, "")
	huge.TotalAmount = types.Amount{Value: decimal.RequireFromString("1e400"), Valid: true}
	huge.ProcessingTimeSeconds = types.Seconds{Value: math.Inf(1), Valid: true}

	nan := order("nan", types.StatusCompleted, 6, "10")
	nan.ProcessingTimeSeconds = types.Seconds{Value: math.NaN(), Valid: true}

	ok := order("ok", types.StatusCompleted, 7, "30")
	ok.ProcessingTimeSeconds = types.NewSeconds(600)

	m := ComputeMetrics(NewWindow("s1", []types.Order{huge, nan, ok}), baseTime)

	if m.TotalRevenue != 40 {
		t.Errorf("TotalRevenue = %v, want 40 (out-of-range amount counts as 0)", m.TotalRevenue)
	}
	if m.ProcessingSamples != 1 || m.AvgProcessingTimeSeconds != 600 {
		t.Errorf("processing = %v over %d samples, want 600 over 1", m.AvgProcessingTimeSeconds, m.ProcessingSamples)
	}
	if _, err := json.Marshal(m); err != nil {
		t.Fatalf("metrics not encodable: %v", err)
	}
}

func TestComputeMetrics_LargeSumsSaturate(t *testing.T) {
	a := order("a", types.StatusCompleted, 5, "1.5e308")
	b := order("b", types.StatusCompleted, 6, "1.5e308")
	a.ProcessingTimeSeconds = types.NewSeconds(1.5e308)
	b.ProcessingTimeSeconds = types.NewSeconds(1.5e308)

	m := ComputeMetrics(NewWindow("s1", []types.Order{a, b}), baseTime)

	if m.TotalRevenue != math.MaxFloat64 {
		t.Errorf("TotalRevenue = %v, want MaxFloat64", m.TotalRevenue)
	}
	if !almostEqual(m.AvgOrderValue, 1.5e308, 1e295) {
		t.Errorf("AvgOrderValue = %v, want 1.5e308", m.AvgOrderValue)
	}
	if math.IsInf(m.AvgProcessingTimeSeconds, 0) {
		t.Errorf("AvgProcessingTimeSeconds overflowed: %v", m.AvgProcessingTimeSeconds)
	}
	if _, err := json.Marshal(m); err != nil {
		t.Fatalf("metrics not encodable: %v", err)
	}
}
