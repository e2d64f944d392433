package service

import (
	"context"
	"time"

	"github.com/storepulse/storepulse/pkg/types"
	"github.com/storepulse/storepulse/server/internal/cache"
	"github.com/storepulse/storepulse/server/internal/upstream"
)

// Operation names used for upstream metrics.
const (
	opListStores = "list_stores"
	opGetStore   = "get_store"
	opGetOrders  = "get_orders"
)

func (s *Service) listStores(ctx context.Context) ([]types.Store, error) {
	start := time.Now()
	stores, err := s.src.ListStores(ctx)
	s.metrics.ObserveUpstream(opListStores, err, time.Since(start))
	return stores, err
}

// store reads through the cache to the upstream store profile.
func (s *Service) store(ctx context.Context, storeID string) (types.Store, error) {
	var st types.Store
	if s.cacheGet(ctx, cache.StoreKey(storeID), &st) {
		return st, nil
	}

	start := time.Now()
	st, err := s.src.GetStore(ctx, storeID)
	s.metrics.ObserveUpstream(opGetStore, err, time.Since(start))
	if err != nil {
		return types.Store{}, err
	}
	s.cacheSet(ctx, cache.StoreKey(storeID), st)
	return st, nil
}

// orders reads through the cache to the upstream orders of a store.
func (s *Service) orders(ctx context.Context, storeID string) (upstream.OrderPage, error) {
	var page upstream.OrderPage
	if s.cacheGet(ctx, cache.OrdersKey(storeID), &page) {
		return page, nil
	}

	start := time.Now()
	page, err := s.src.GetOrders(ctx, storeID)
	s.metrics.ObserveUpstream(opGetOrders, err, time.Since(start))
	if err != nil {
		return upstream.OrderPage{}, err
	}
	s.metrics.ObserveSkippedOrders(page.Skipped)
	s.cacheSet(ctx, cache.OrdersKey(storeID), page)
	return page, nil
}

// cacheGet reports a hit. Cache errors are logged and treated as a miss.
func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		s.metrics.ObserveCache("error")
		s.logger.Warn("service: cache read failed", "key", key, "err", err)
		return false
	case hit:
		s.metrics.ObserveCache("hit")
		return true
	default:
		s.metrics.ObserveCache("miss")
		return false
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn("service: cache write failed", "key", key, "err", err)
	}
}
