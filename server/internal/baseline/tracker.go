package baseline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/storepulse/storepulse/server/internal/compute"
)

// Default tuning used when New is given zero values.
const (
	DefaultAlpha      = 0.2
	DefaultMinSamples = 3
	DefaultTTL        = 24 * time.Hour
	DefaultMinGap     = time.Minute
)

// Entry is a store's learned baseline together with the time it was last
// updated.
type Entry struct {
	Baseline  compute.Baseline
	UpdatedAt time.Time
}

// Tracker is a thread-safe in-memory baseline store, keyed by store ID.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Tracker struct {
	mu         sync.RWMutex
	data       map[string]*Entry
	ttl        time.Duration
	alpha      float64
	minSamples int
	minGap     time.Duration
	now        func() time.Time // injectable for deterministic tests
}

// New creates a Tracker. alpha is the EWMA weight of the newest observation
// in (0, 1]; minSamples is how many observations a baseline needs before
// Get returns it. Observations arriving less than minGap after the previous
// accepted one are ignored, so bursts of API calls count as one poll.
func New(ttl time.Duration, alpha float64, minSamples int, minGap time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Tracker{
		data:       make(map[string]*Entry),
		ttl:        ttl,
		alpha:      alpha,
		minSamples: minSamples,
		minGap:     max(minGap, 0),
		now:        time.Now,
	}
}

// Observe folds one poll's observation into the store's baseline and
// reports whether it was accepted.
// A zero processing time in obs means the poll had no timing samples and
// leaves the learned processing time untouched.
func (t *Tracker) Observe(storeID string, obs compute.Baseline) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.data[storeID]
	if !ok {
		obs.Samples = 1
		obs.Source = compute.BaselineRolling
		t.data[storeID] = &Entry{Baseline: obs, UpdatedAt: now}
		return true
	}
	if t.minGap > 0 && now.Sub(e.UpdatedAt) < t.minGap {
		return false
	}

	b := &e.Baseline
	b.OrdersPerHour = t.ewma(b.OrdersPerHour, obs.OrdersPerHour)
	b.RevenuePerDay = t.ewma(b.RevenuePerDay, obs.RevenuePerDay)
	b.AvgOrderValue = t.ewma(b.AvgOrderValue, obs.AvgOrderValue)
	b.SuccessRate = t.ewma(b.SuccessRate, obs.SuccessRate)
	switch {
	case obs.AvgProcessingTimeSeconds <= 0:
	case b.AvgProcessingTimeSeconds <= 0:
		b.AvgProcessingTimeSeconds = obs.AvgProcessingTimeSeconds
	default:
		b.AvgProcessingTimeSeconds = t.ewma(b.AvgProcessingTimeSeconds, obs.AvgProcessingTimeSeconds)
	}
	b.Samples++
	e.UpdatedAt = now
	return true
}

func (t *Tracker) ewma(prev, next float64) float64 {
	return t.alpha*next + (1-t.alpha)*prev
}

// Get returns a copy of the store's rolling baseline when it has at least
// minSamples observations and is within the TTL.
func (t *Tracker) Get(storeID string) (*compute.Baseline, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.data[storeID]
	if !ok || e.Baseline.Samples < t.minSamples || !e.UpdatedAt.After(t.now().Add(-t.ttl)) {
		return nil, false
	}
	b := e.Baseline
	return &b, true
}

// Lookup returns the raw entry for storeID regardless of sample count or
// staleness.
func (t *Tracker) Lookup(storeID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.data[storeID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Count returns the total number of entries currently held, including stale ones.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (t *Tracker) Evict(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := now.Add(-t.ttl)
	removed := 0
	for id, e := range t.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(t.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	interval := t.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			if n := t.Evict(now); n > 0 {
				slog.Debug("baseline: evicted stale stores", "count", n)
			}
		}
	}
}
