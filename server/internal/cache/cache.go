// Package cache holds short-lived copies of upstream responses so repeated
// API calls within the TTL do not refetch the same store.
package cache

import (
	"context"
	"fmt"
)

// Cache stores JSON-encodable values by key.
//
// Get reports false with a nil error on a miss. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Close() error
}

// StoreKey is the cache key of a store's profile.
func StoreKey(storeID string) string { return fmt.Sprintf("storepulse:store:%s", storeID) }

// OrdersKey is the cache key of a store's raw orders.
func OrdersKey(storeID string) string { return fmt.Sprintf("storepulse:orders:%s", storeID) }

// Noop is a Cache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Close() error                                   { return nil }
