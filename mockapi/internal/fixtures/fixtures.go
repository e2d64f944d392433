// Package fixtures holds the canned stores and orders served by the mock
// upstream provider.
//
// Order timestamps are stored as offsets from a fixed anchor and rebased onto
// the clock passed to New, so the data always falls inside a 24h window.
package fixtures

import (
	"time"

	"github.com/storepulse/storepulse/pkg/types"
)

// anchor is the instant the recorded fixture timestamps are relative to.
var anchor = time.Date(2025, 12, 6, 16, 20, 0, 0, time.UTC)

// Record is one order exactly as the provider serialises it. Amounts are
// deliberately a mix of JSON strings and numbers.
type Record map[string]any

// Dataset is an immutable set of stores and their orders.
type Dataset struct {
	stores []types.Store
	orders map[string][]Record
}

// New returns the default dataset with order times rebased onto now.
func New(now time.Time) *Dataset {
	shift := now.UTC().Sub(anchor)
	orders := make(map[string][]Record, len(recordedOrders))
	for storeID, recs := range recordedOrders {
		out := make([]Record, 0, len(recs))
		for _, rec := range recs {
			out = append(out, rebase(rec, shift))
		}
		orders[storeID] = out
	}
	stores := make([]types.Store, len(recordedStores))
	copy(stores, recordedStores)
	return &Dataset{stores: stores, orders: orders}
}

// Stores returns one page of stores. A limit <= 0 means the default of 100;
// a negative offset is treated as 0.
func (d *Dataset) Stores(limit, offset int) types.StoreList {
	if limit <= 0 {
		limit = 100
	}
	offset = max(offset, 0)
	start := min(offset, len(d.stores))
	end := min(start+limit, len(d.stores))
	page := make([]types.Store, end-start)
	copy(page, d.stores[start:end])
	return types.StoreList{Stores: page, Total: len(d.stores), Limit: limit, Offset: offset}
}

// Store looks a store up by ID.
func (d *Dataset) Store(id string) (types.Store, bool) {
	for _, s := range d.stores {
		if s.ID == id {
			return s, true
		}
	}
	return types.Store{}, false
}

// Orders returns the store's orders. Unknown stores have none.
func (d *Dataset) Orders(id string) []Record {
	recs := d.orders[id]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

func rebase(rec Record, shift time.Duration) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, key := range []string{"created_at", "completed_at"} {
		s, ok := out[key].(string)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			continue
		}
		out[key] = t.Add(shift).UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return out
}
