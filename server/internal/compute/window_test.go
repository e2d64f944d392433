package compute

import (
	"math"
	"testing"
	"time"

	"github.com/storepulse/storepulse/pkg/types"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// tick returns baseTime advanced by n minutes (negative n goes back).
func tick(n int) time.Time {
	return baseTime.Add(time.Duration(n) * time.Minute)
}

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// order builds a completed order created minutesAgo before baseTime.
func order(id string, status types.OrderStatus, minutesAgo int, amount string) types.Order {
	return types.Order{
		ID:          id,
		Status:      status,
		CreatedAt:   tick(-minutesAgo).Format(time.RFC3339),
		TotalAmount: types.NewAmount(amount),
	}
}

func TestNewWindow_SortsByTimeWithUnparseableLast(t *testing.T) {
	orders := []types.Order{
		{ID: "bad-1", CreatedAt: "yesterday"},
		order("late", types.StatusCompleted, 5, "10"),
		{ID: "bad-2", CreatedAt: ""},
		order("early", types.StatusCompleted, 50, "10"),
	}
	w := NewWindow("s1", orders)

	want := []string{"early", "late", "bad-1", "bad-2"}
	got := w.Entries()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("entry %d = %q, want %q", i, got[i].ID, id)
		}
	}
	if w.StoreID() != "s1" {
		t.Errorf("StoreID = %q", w.StoreID())
	}
}

func TestNewWindow_Normalisation(t *testing.T) {
	errType := "  "
	orders := []types.Order{
		{ID: "a", Status: "COMPLETED ", CreatedAt: "2026-01-01T11:00:00+00:00", TotalAmount: types.NewAmount("-5")},
		{ID: "b", Status: "refunded", CreatedAt: "2026-01-01T11:00:00.362Z", ProcessingTimeSeconds: types.NewSeconds(-1)},
		{ID: "c", Status: types.StatusFailed, CreatedAt: "2026-01-01 11:00", HasError: true, ErrorType: &errType},
	}
	entries := NewWindow("s1", orders).Entries()

	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}

	if byID["a"].Status != types.StatusCompleted {
		t.Errorf("a status = %q, want completed", byID["a"].Status)
	}
	if !byID["a"].Amount.IsZero() {
		t.Errorf("negative amount not clamped: %s", byID["a"].Amount)
	}
	if byID["b"].Status != types.StatusUnknown {
		t.Errorf("b status = %q, want unknown", byID["b"].Status)
	}
	if byID["b"].HasProcessing {
		t.Error("negative processing time should be treated as absent")
	}
	if !byID["b"].HasTime {
		t.Error("fractional Z timestamp should parse")
	}
	if byID["c"].HasTime {
		t.Error("timestamp without zone should not parse")
	}
	if byID["c"].ErrorType != unknownErrorType {
		t.Errorf("blank error type = %q, want %q", byID["c"].ErrorType, unknownErrorType)
	}
}

func TestWindow_Trim(t *testing.T) {
	orders := []types.Order{
		order("fresh", types.StatusCompleted, 30, "1"),
		order("old", types.StatusCompleted, 25*60, "1"),
		{ID: "undated", CreatedAt: "n/a"},
	}
	w := NewWindow("s1", orders)
	trimmed := w.Trim(baseTime, 24*time.Hour)

	if trimmed.Len() != 2 {
		t.Fatalf("trimmed len = %d, want 2", trimmed.Len())
	}
	for _, e := range trimmed.Entries() {
		if e.ID == "old" {
			t.Error("order older than horizon was kept")
		}
	}
	if w.Len() != 3 {
		t.Errorf("original window mutated: len = %d", w.Len())
	}
	if w.Trim(baseTime, 0) != w {
		t.Error("zero horizon should return the same window")
	}
}

func TestWindow_NilSafe(t *testing.T) {
	var w *Window
	if w.Len() != 0 || w.StoreID() != "" || w.Entries() != nil {
		t.Error("nil window accessors should return zero values")
	}
	if w.Trim(baseTime, time.Hour) != nil {
		t.Error("Trim on nil window should return nil")
	}
}
