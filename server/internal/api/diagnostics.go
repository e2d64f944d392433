package api

import (
	"fmt"
	"sort"

	"github.com/storepulse/storepulse/server/internal/service"
)

// DiagnosticHint is a plain-language explanation of one aspect of a store's
// health, for operators who do not read raw metrics.
type DiagnosticHint struct {
	Key    string   `json:"key"`
	Level  string   `json:"level"` // ok | info | warning | critical
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

// buildDiagnostics derives hints from an evaluated store. Hints are ordered
// by check, not by level.
func buildDiagnostics(snap *service.Snapshot) []DiagnosticHint {
	m := snap.Metrics
	b := snap.Baseline
	var hints []DiagnosticHint

	if m.TotalOrders24h == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_recent_orders",
			Level: "warning",
			Title: "No orders in 24 hours",
			Detail: "The provider returned no orders placed in the last day. " +
				"Check that the storefront is online on its platform and accepting orders.",
		})
		return append(hints, invalidTimestampHints(m.InvalidTimestamps)...)
	}

	if b == nil {
		hints = append(hints, DiagnosticHint{
			Key:   "no_baseline",
			Level: "info",
			Title: "No baseline yet",
			Detail: "There is no profile or rolling history for this store, so processing time " +
				"is judged against the global default and revenue is not judged at all.",
		})
	}

	if m.FailureRate > 0 {
		v := m.FailureRate
		level := "info"
		switch {
		case v >= 40:
			level = "critical"
		case v >= 20:
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "failure_rate",
			Level: level,
			Title: fmt.Sprintf("%.1f%% of orders failed", v),
			Detail: fmt.Sprintf("%d of %d orders in the window failed. "+
				"A sustained rate above 20%% usually points at the kitchen tablet or the POS integration.",
				m.FailedOrders, m.TotalOrders),
			Value: &v,
		})
	}

	if m.CancellationRate >= 20 {
		v := m.CancellationRate
		hints = append(hints, DiagnosticHint{
			Key:   "cancellation_rate",
			Level: "warning",
			Title: fmt.Sprintf("%.1f%% of orders cancelled", v),
			Detail: fmt.Sprintf("%d orders were cancelled. Frequent cancellations often mean "+
				"items are out of stock or prep times are too long for customers.", m.CancelledOrders),
			Value: &v,
		})
	}

	if b != nil && b.AvgProcessingTimeSeconds > 0 && m.ProcessingSamples > 0 {
		ratio := m.AvgProcessingTimeSeconds / b.AvgProcessingTimeSeconds
		if ratio > 1.5 {
			level := "warning"
			if ratio > 3 {
				level = "critical"
			}
			v := m.AvgProcessingTimeSeconds
			hints = append(hints, DiagnosticHint{
				Key:   "slow_processing",
				Level: level,
				Title: fmt.Sprintf("Orders take %.1fx longer than usual", ratio),
				Detail: fmt.Sprintf("Average processing is %.0f min against a typical %.0f min.",
					m.AvgProcessingTimeMinutes, b.AvgProcessingTimeSeconds/60),
				Value: &v,
			})
		}
	}

	if b != nil && b.RevenuePerDay > 0 {
		ratio := m.TotalRevenue / b.RevenuePerDay
		if ratio < 0.5 {
			v := m.TotalRevenue
			hints = append(hints, DiagnosticHint{
				Key:   "revenue_drop",
				Level: "warning",
				Title: fmt.Sprintf("Revenue at %.0f%% of normal", ratio*100),
				Detail: fmt.Sprintf("The window brought in %.2f against a typical day of %.2f.",
					m.TotalRevenue, b.RevenuePerDay),
				Value: &v,
			})
		}
	}

	if top, n := topError(m.ErrorBreakdown); n > 0 {
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:    "top_error",
			Level:  "info",
			Title:  fmt.Sprintf("Most common error: %s", top),
			Detail: fmt.Sprintf("%d of %d flagged orders reported %q.", n, m.ErrorOrders, top),
			Value:  &v,
		})
	}

	hints = append(hints, invalidTimestampHints(m.InvalidTimestamps)...)

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf("Health score %.0f/100. Nothing needs attention.", snap.Score.Score),
		})
	}
	return hints
}

func invalidTimestampHints(n int) []DiagnosticHint {
	if n == 0 {
		return nil
	}
	v := float64(n)
	return []DiagnosticHint{{
		Key:   "invalid_timestamps",
		Level: "info",
		Title: fmt.Sprintf("%d orders without a usable timestamp", n),
		Detail: "These orders count toward totals and rates but not toward the 24h and 1h " +
			"volumes or the last-order time.",
		Value: &v,
	}}
}

// topError returns the most frequent error type, ties broken by name.
func topError(breakdown map[string]int) (string, int) {
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var top string
	var n int
	for _, k := range keys {
		if breakdown[k] > n {
			top, n = k, breakdown[k]
		}
	}
	return top, n
}
