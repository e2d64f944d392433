package compute

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storepulse/storepulse/pkg/types"
)

// Entry is one normalised order inside a Window.
type Entry struct {
	ID     string
	Status types.OrderStatus

	// CreatedAt is only meaningful when HasTime is true.
	CreatedAt time.Time
	HasTime   bool

	// Amount is zero when the upstream amount was missing or negative.
	Amount decimal.Decimal

	// ProcessingSeconds is only meaningful when HasProcessing is true.
	ProcessingSeconds float64
	HasProcessing     bool

	HasError  bool
	ErrorType string
}

// Window is the validated, time-ordered view of one store's recent orders.
// A Window is never modified after construction.
type Window struct {
	storeID string
	entries []Entry
}

// NewWindow normalises raw orders for storeID.
//
// Orders are sorted by creation time; orders whose timestamp does not parse
// as RFC 3339 sort last in their input order.
func NewWindow(storeID string, orders []types.Order) *Window {
	entries := make([]Entry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, normalize(o))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.HasTime != b.HasTime {
			return a.HasTime
		}
		return a.HasTime && a.CreatedAt.Before(b.CreatedAt)
	})
	return &Window{storeID: storeID, entries: entries}
}

// Trim returns a new Window without the orders created before now-horizon.
// Orders with unparseable timestamps are kept. A non-positive horizon
// returns w unchanged.
func (w *Window) Trim(now time.Time, horizon time.Duration) *Window {
	if w == nil || horizon <= 0 {
		return w
	}
	cutoff := now.Add(-horizon)
	kept := make([]Entry, 0, len(w.entries))
	for _, e := range w.entries {
		if e.HasTime && e.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return &Window{storeID: w.storeID, entries: kept}
}

// StoreID returns the store the window belongs to.
func (w *Window) StoreID() string {
	if w == nil {
		return ""
	}
	return w.storeID
}

// Len returns the number of orders in the window.
func (w *Window) Len() int {
	if w == nil {
		return 0
	}
	return len(w.entries)
}

// Entries returns a copy of the window's orders in window order.
func (w *Window) Entries() []Entry {
	if w == nil {
		return nil
	}
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

func normalize(o types.Order) Entry {
	e := Entry{
		ID:       o.ID,
		Status:   types.OrderStatus(strings.ToLower(strings.TrimSpace(string(o.Status)))).Normalize(),
		HasError: o.HasError,
	}

	if t, ok := parseTimestamp(o.CreatedAt); ok {
		e.CreatedAt = t
		e.HasTime = true
	}

	if o.TotalAmount.Finite() && o.TotalAmount.Value.IsPositive() {
		e.Amount = o.TotalAmount.Value
	}

	if p := o.ProcessingTimeSeconds; p.Valid && p.Value >= 0 && !math.IsInf(p.Value, 0) {
		e.ProcessingSeconds = o.ProcessingTimeSeconds.Value
		e.HasProcessing = true
	}

	if o.HasError {
		e.ErrorType = unknownErrorType
		if o.ErrorType != nil && strings.TrimSpace(*o.ErrorType) != "" {
			e.ErrorType = strings.TrimSpace(*o.ErrorType)
		}
	}
	return e
}

// parseTimestamp accepts RFC 3339 timestamps with a zone designator,
// e.g. "2025-12-06T16:15:43.362Z" or "2025-12-06T16:15:43+00:00".
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
