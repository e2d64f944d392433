package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state reported by the upstream provider.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
	StatusUnknown   OrderStatus = "unknown"
)

// Normalize maps any value outside the closed status set to StatusUnknown.
func (s OrderStatus) Normalize() OrderStatus {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return s
	default:
		return StatusUnknown
	}
}

// Order is one raw transaction as served by GET /api/stores/{id}/orders.
type Order struct {
	ID                    string      `json:"id"`
	StoreID               string      `json:"store_id,omitempty"`
	StoreName             string      `json:"store_name,omitempty"`
	Platform              string      `json:"platform,omitempty"`
	Status                OrderStatus `json:"status"`
	TotalAmount           Amount      `json:"total_amount"`
	ItemsCount            int         `json:"items_count,omitempty"`
	CreatedAt             string      `json:"created_at"`
	ProcessingTimeSeconds Seconds     `json:"processing_time_seconds"`
	HasError              bool        `json:"has_error"`
	ErrorType             *string     `json:"error_type"`
}

// Amount is a monetary value. Valid is false when the field was missing,
// null, not a number or too large to represent as a float64.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount returns a valid Amount parsed from s, or an invalid one.
func NewAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil || !FiniteDecimal(d) {
		return Amount{}
	}
	return Amount{Value: d, Valid: true}
}

// Finite reports whether a is valid and converts to a finite float64.
func (a Amount) Finite() bool {
	return a.Valid && FiniteDecimal(a.Value)
}

// FiniteDecimal reports whether d converts to a finite float64.
func FiniteDecimal(d decimal.Decimal) bool {
	return !math.IsInf(d.InexactFloat64(), 0)
}

// UnmarshalJSON accepts 59, "39.92" and null. It never returns an error.
func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil || !FiniteDecimal(d) {
		return nil
	}
	*a = Amount{Value: d, Valid: true}
	return nil
}

// MarshalJSON writes the amount as a JSON number, or null when invalid.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// Seconds is an optional duration in seconds. A valid Seconds is always
// finite.
type Seconds struct {
	Value float64
	Valid bool
}

// NewSeconds returns a valid Seconds holding v, or an invalid one when v is
// NaN or infinite.
func NewSeconds(v float64) Seconds {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Seconds{}
	}
	return Seconds{Value: v, Valid: true}
}

// UnmarshalJSON accepts 1259, "1259" and null. "NaN", "Inf" and values out
// of float64 range are treated as absent. It never returns an error.
func (s *Seconds) UnmarshalJSON(b []byte) error {
	*s = Seconds{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		*s = NewSeconds(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*s = NewSeconds(f)
		}
	}
	return nil
}

// MarshalJSON writes the value as a JSON number, or null when invalid.
func (s Seconds) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// OrderList is the envelope of GET /api/stores/{id}/orders.
type OrderList struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}
