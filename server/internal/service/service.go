package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/storepulse/storepulse/pkg/types"
	"github.com/storepulse/storepulse/server/internal/baseline"
	"github.com/storepulse/storepulse/server/internal/cache"
	"github.com/storepulse/storepulse/server/internal/compute"
	"github.com/storepulse/storepulse/server/internal/config"
	"github.com/storepulse/storepulse/server/internal/instrumentation"
	"github.com/storepulse/storepulse/server/internal/upstream"
)

// Source is the order-data provider. *upstream.Client implements it.
type Source interface {
	ListStores(ctx context.Context) ([]types.Store, error)
	GetStore(ctx context.Context, storeID string) (types.Store, error)
	GetOrders(ctx context.Context, storeID string) (upstream.OrderPage, error)
}

// Failure reasons used in logs and the store_failures_total counter.
const (
	ReasonNotFound = "not_found"
	ReasonUpstream = "upstream"
	ReasonCanceled = "canceled"
)

// thresholds is the hot-reloadable part of the configuration.
type thresholds struct {
	horizon  time.Duration
	scorer   compute.Scorer
	detector compute.Detector
}

func newThresholds(cfg config.ComputeConfig) *thresholds {
	h := cfg.Horizon
	if h <= 0 {
		h = config.DefaultHorizon
	}
	return &thresholds{
		horizon:  h,
		scorer:   compute.NewScorer(cfg.Score),
		detector: compute.NewDetector(cfg.Anomaly),
	}
}

// Options configures a Service. Source is required; every other field has
// a usable zero value.
type Options struct {
	Source         Source
	Cache          cache.Cache
	Tracker        *baseline.Tracker
	Metrics        *instrumentation.Metrics
	Logger         *slog.Logger
	MaxConcurrency int
	Compute        config.ComputeConfig
}

// Service evaluates store health on demand. It is safe for concurrent use.
type Service struct {
	src            Source
	cache          cache.Cache
	tracker        *baseline.Tracker
	metrics        *instrumentation.Metrics
	logger         *slog.Logger
	maxConcurrency int
	th             atomic.Pointer[thresholds]
}

// New builds a Service from opts.
func New(opts Options) *Service {
	s := &Service{
		src:            opts.Source,
		cache:          opts.Cache,
		tracker:        opts.Tracker,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		maxConcurrency: opts.MaxConcurrency,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "service")
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = config.DefaultMaxConcurrency
	}
	s.th.Store(newThresholds(opts.Compute))
	return s
}

// UpdateCompute swaps in new window, score and anomaly settings. Requests
// already running finish with the settings they started with.
func (s *Service) UpdateCompute(cfg config.ComputeConfig) {
	s.th.Store(newThresholds(cfg))
	s.logger.Info("service: compute settings updated", "horizon", cfg.Horizon)
}

// Snapshot is one store's evaluation at an instant.
type Snapshot struct {
	Store    types.Store
	Orders   []types.Order
	Metrics  compute.StoreMetrics
	Baseline *compute.Baseline
	Score    compute.HealthScore
	At       time.Time
}

// Evaluate fetches a store and its orders and computes metrics and score as
// of now. The baseline used is resolved before this poll is folded into the
// rolling tracker, so a poll never scores against itself.
func (s *Service) Evaluate(ctx context.Context, storeID string, now time.Time) (*Snapshot, error) {
	th := s.th.Load()

	store, err := s.store(ctx, storeID)
	if err != nil {
		return nil, err
	}
	page, err := s.orders(ctx, storeID)
	if err != nil {
		return nil, err
	}

	w := compute.NewWindow(storeID, page.Orders).Trim(now, th.horizon)
	m := compute.ComputeMetrics(w, now)
	b := s.resolveBaseline(storeID, store.Metrics)
	hs := th.scorer.Score(m, b)

	if s.tracker != nil {
		s.tracker.Observe(storeID, compute.ObservationFromMetrics(m))
	}
	s.metrics.ObserveStore(m, hs)

	return &Snapshot{
		Store:    store,
		Orders:   page.Orders,
		Metrics:  m,
		Baseline: b,
		Score:    hs,
		At:       now,
	}, nil
}

// resolveBaseline prefers a mature rolling baseline, then the upstream
// profile, then none.
func (s *Service) resolveBaseline(storeID string, profile types.StoreProfile) *compute.Baseline {
	if s.tracker != nil {
		if b, ok := s.tracker.Get(storeID); ok {
			return b
		}
	}
	return compute.BaselineFromProfile(profile)
}

// StoreResult is the outcome of evaluating one store in a batch.
// Exactly one of Snapshot and Err is set.
type StoreResult struct {
	StoreID  string
	Snapshot *Snapshot
	Err      error
}

// Batch is the outcome of evaluating every store, in upstream list order.
type Batch struct {
	Stores  []types.Store
	Results []StoreResult
}

// Succeeded returns the snapshots of the stores that evaluated cleanly.
func (b Batch) Succeeded() []*Snapshot {
	out := make([]*Snapshot, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r.Snapshot)
		}
	}
	return out
}

// Failed returns the results of the stores that could not be evaluated.
func (b Batch) Failed() []StoreResult {
	var out []StoreResult
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// EvaluateAll evaluates every store concurrently, at most maxConcurrency at
// a time. Only a failure to list the stores is returned as an error;
// per-store failures are reported in the Batch.
func (s *Service) EvaluateAll(ctx context.Context, now time.Time) (Batch, error) {
	stores, err := s.listStores(ctx)
	if err != nil {
		return Batch{}, err
	}

	results := make([]StoreResult, len(stores))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, st := range stores {
		g.Go(func() error {
			snap, err := s.Evaluate(ctx, st.ID, now)
			results[i] = StoreResult{StoreID: st.ID, Snapshot: snap, Err: err}
			if err != nil {
				reason := failureReason(err)
				s.metrics.ObserveStoreFailure(reason)
				s.logger.Warn("service: store evaluation failed", "store", st.ID, "reason", reason, "err", err)
			}
			// Never abort siblings.
			return nil
		})
	}
	_ = g.Wait()

	return Batch{Stores: stores, Results: results}, nil
}

// DetectAnomalies runs the detector for one store, or for every store when
// storeID is empty. For the all-store scan the Batch lists any stores that
// could not be evaluated; their anomalies are simply absent.
func (s *Service) DetectAnomalies(ctx context.Context, storeID string, now time.Time) ([]compute.Anomaly, Batch, error) {
	detector := s.th.Load().detector

	var batch Batch
	if storeID != "" {
		snap, err := s.Evaluate(ctx, storeID, now)
		if err != nil {
			return nil, Batch{}, err
		}
		batch = Batch{Stores: []types.Store{snap.Store}, Results: []StoreResult{{StoreID: storeID, Snapshot: snap}}}
	} else {
		var err error
		batch, err = s.EvaluateAll(ctx, now)
		if err != nil {
			return nil, Batch{}, err
		}
	}

	snaps := batch.Succeeded()
	inputs := make([]compute.StoreInput, 0, len(snaps))
	for _, snap := range snaps {
		inputs = append(inputs, compute.StoreInput{Metrics: snap.Metrics, Baseline: snap.Baseline})
	}
	anomalies := detector.Detect(inputs, now)
	s.metrics.ObserveAnomalies(anomalies)
	return anomalies, batch, nil
}

// StoreFailure is a store that could not be included in a summary.
type StoreFailure struct {
	StoreID string `json:"store_id"`
	Reason  string `json:"reason"`
	Error   string `json:"error"`
}

// Summary is the all-store dashboard overview.
type Summary struct {
	TotalStores  int            `json:"total_stores"`
	TotalOrders  int            `json:"total_orders"`
	TotalRevenue float64        `json:"total_revenue"`
	Stores       []types.Store  `json:"stores"`
	Failures     []StoreFailure `json:"failures"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Summary totals the raw orders of every store. Stores whose orders could
// not be fetched are listed in Failures and excluded from the totals.
func (s *Service) Summary(ctx context.Context, now time.Time) (Summary, error) {
	batch, err := s.EvaluateAll(ctx, now)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		TotalStores: len(batch.Stores),
		Stores:      batch.Stores,
		Failures:    []StoreFailure{},
		Timestamp:   now,
	}
	if sum.Stores == nil {
		sum.Stores = []types.Store{}
	}
	revenue := decimal.Zero
	for _, r := range batch.Results {
		if r.Err != nil {
			sum.Failures = append(sum.Failures, StoreFailure{StoreID: r.StoreID, Reason: failureReason(r.Err), Error: r.Err.Error()})
			continue
		}
		sum.TotalOrders += len(r.Snapshot.Orders)
		for _, o := range r.Snapshot.Orders {
			if o.TotalAmount.Finite() && o.TotalAmount.Value.IsPositive() {
				revenue = revenue.Add(o.TotalAmount.Value)
			}
		}
	}
	sum.TotalRevenue = compute.DecimalFloat(revenue)
	return sum, nil
}

// StoreDetail is the store plus its raw orders, as the dashboard shows them.
type StoreDetail struct {
	Store  types.Store   `json:"store"`
	Orders []types.Order `json:"orders"`
}

// StoreDetail fetches the store and its orders without computing anything.
func (s *Service) StoreDetail(ctx context.Context, storeID string) (StoreDetail, error) {
	store, err := s.store(ctx, storeID)
	if err != nil {
		return StoreDetail{}, err
	}
	page, err := s.orders(ctx, storeID)
	if err != nil {
		return StoreDetail{}, err
	}
	orders := page.Orders
	if orders == nil {
		orders = []types.Order{}
	}
	return StoreDetail{Store: store, Orders: orders}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, upstream.ErrStoreNotFound):
		return ReasonNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonUpstream
	}
}
