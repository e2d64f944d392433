package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/storepulse/storepulse/pkg/types"
	"github.com/storepulse/storepulse/server/internal/api"
	"github.com/storepulse/storepulse/server/internal/compute"
	"github.com/storepulse/storepulse/server/internal/instrumentation"
	"github.com/storepulse/storepulse/server/internal/service"
	"github.com/storepulse/storepulse/server/internal/upstream"
)

// --- test helpers -----------------------------------------------------------

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func order(id string, status types.OrderStatus, minutesAgo int, amount string, processing float64) types.Order {
	return types.Order{
		ID:                    id,
		Status:                status,
		CreatedAt:             baseTime.Add(-time.Duration(minutesAgo) * time.Minute).Format(time.RFC3339),
		TotalAmount:           types.NewAmount(amount),
		ProcessingTimeSeconds: types.NewSeconds(processing),
	}
}

// fakeService evaluates canned orders with the real compute package.
type fakeService struct {
	stores  []types.Store
	orders  map[string][]types.Order
	errs    map[string]error
	listErr error
	metrics *instrumentation.Metrics
}

func newFakeService() *fakeService {
	failed := "processing_error"
	o1 := []types.Order{
		order("a1", types.StatusCompleted, 10, "20", 1200),
		order("a2", types.StatusCompleted, 20, "20", 1200),
		order("a3", types.StatusCompleted, 30, "20", 1200),
		order("a4", types.StatusCompleted, 40, "20", 1200),
	}
	bad := order("a5", types.StatusFailed, 50, "20", 1200)
	bad.HasError = true
	bad.ErrorType = &failed
	o1 = append(o1, bad)

	return &fakeService{
		stores: []types.Store{
			{ID: "store_0001", Name: "Five Guys West", Metrics: types.StoreProfile{AvgOrderTime: 20, AvgOrderValue: 20, DailyOrders: 5, SuccessRate: 90}},
			{ID: "store_0002", Name: "Five Guys West", Metrics: types.StoreProfile{AvgOrderTime: 15, AvgOrderValue: 30, DailyOrders: 96, SuccessRate: 95}},
		},
		orders: map[string][]types.Order{
			"store_0001": o1,
			"store_0002": {},
		},
		errs: map[string]error{},
	}
}

func (f *fakeService) find(id string) (types.Store, error) {
	if err, ok := f.errs[id]; ok {
		return types.Store{}, err
	}
	for _, s := range f.stores {
		if s.ID == id {
			return s, nil
		}
	}
	return types.Store{}, fmt.Errorf("get store: %w", upstream.ErrStoreNotFound)
}

func (f *fakeService) Evaluate(_ context.Context, id string, now time.Time) (*service.Snapshot, error) {
	st, err := f.find(id)
	if err != nil {
		return nil, err
	}
	m := compute.ComputeMetrics(compute.NewWindow(id, f.orders[id]), now)
	b := compute.BaselineFromProfile(st.Metrics)
	hs := compute.Score(m, b)
	f.metrics.ObserveStore(m, hs)
	return &service.Snapshot{Store: st, Orders: f.orders[id], Metrics: m, Baseline: b, Score: hs, At: now}, nil
}

func (f *fakeService) DetectAnomalies(ctx context.Context, id string, now time.Time) ([]compute.Anomaly, service.Batch, error) {
	if f.listErr != nil && id == "" {
		return nil, service.Batch{}, f.listErr
	}
	ids := []string{id}
	if id == "" {
		ids = ids[:0]
		for _, s := range f.stores {
			ids = append(ids, s.ID)
		}
	}
	var batch service.Batch
	var inputs []compute.StoreInput
	for _, sid := range ids {
		snap, err := f.Evaluate(ctx, sid, now)
		if err != nil && id != "" {
			return nil, service.Batch{}, err
		}
		batch.Results = append(batch.Results, service.StoreResult{StoreID: sid, Snapshot: snap, Err: err})
		if err == nil {
			inputs = append(inputs, compute.StoreInput{Metrics: snap.Metrics, Baseline: snap.Baseline})
		}
	}
	return compute.NewDetector(compute.DefaultAnomalyConfig()).Detect(inputs, now), batch, nil
}

func (f *fakeService) Summary(_ context.Context, now time.Time) (service.Summary, error) {
	if f.listErr != nil {
		return service.Summary{}, f.listErr
	}
	return service.Summary{TotalStores: len(f.stores), TotalOrders: 5, TotalRevenue: 100, Stores: f.stores, Failures: []service.StoreFailure{}, Timestamp: now}, nil
}

func (f *fakeService) StoreDetail(_ context.Context, id string) (service.StoreDetail, error) {
	st, err := f.find(id)
	if err != nil {
		return service.StoreDetail{}, err
	}
	return service.StoreDetail{Store: st, Orders: f.orders[id]}, nil
}

func newHandler(f *fakeService, origins ...string) *api.Handler {
	return api.New(f, api.Options{
		Metrics:     f.metrics,
		CORSOrigins: origins,
		Now:         func() time.Time { return baseTime },
		Version:     "1.0.0",
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func wantError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body: %s)", rr.Code, status, rr.Body.String())
	}
	var body map[string]string
	decode(t, rr, &body)
	if body["error"] != code {
		t.Errorf("error: got %q, want %q", body["error"], code)
	}
	if body["message"] == "" {
		t.Error("message is empty")
	}
}

// --- service routes ---------------------------------------------------------

func TestRootAndHealth(t *testing.T) {
	h := newHandler(newFakeService())

	var root map[string]string
	rr := get(t, h, "/")
	decode(t, rr, &root)
	if root["version"] != "1.0.0" || root["message"] == "" {
		t.Errorf("root: %v", root)
	}

	rr = get(t, h, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status: %d", rr.Code)
	}
	var health map[string]string
	decode(t, rr, &health)
	if health["status"] != "healthy" {
		t.Errorf("health: %v", health)
	}
}

func TestStoreMetrics(t *testing.T) {
	h := newHandler(newFakeService())
	rr := get(t, h, "/api/metrics/store/store_0001")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: %q", ct)
	}
	var m compute.StoreMetrics
	decode(t, rr, &m)
	if m.StoreID != "store_0001" || m.TotalOrders != 5 || m.FailedOrders != 1 {
		t.Errorf("metrics: %+v", m)
	}
	if m.SuccessRate != 80 {
		t.Errorf("success_rate: got %v, want 80", m.SuccessRate)
	}
}

func TestHealthScore(t *testing.T) {
	h := newHandler(newFakeService())
	rr := get(t, h, "/api/health-score/store_0001")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var hs compute.HealthScore
	decode(t, rr, &hs)
	if hs.Score < 0 || hs.Score > 100 {
		t.Errorf("score out of range: %v", hs.Score)
	}
	if hs.BaselineSource != compute.BaselineProfile {
		t.Errorf("baseline_source: got %q, want profile", hs.BaselineSource)
	}
	if len(hs.Factors) != 3 {
		t.Errorf("factors: %v", hs.Factors)
	}
}

func TestUnknownStore_404(t *testing.T) {
	h := newHandler(newFakeService())
	for _, path := range []string{
		"/api/metrics/store/nope",
		"/api/metrics/store/nope/prometheus",
		"/api/health-score/nope",
		"/api/diagnostics/store/nope",
		"/api/anomalies/detect?store_id=nope",
		"/api/dashboard/store/nope",
	} {
		t.Run(path, func(t *testing.T) {
			wantError(t, get(t, h, path), http.StatusNotFound, "store_not_found")
		})
	}
}

func TestUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", fmt.Errorf("get store: %w", upstream.ErrUpstream), http.StatusBadGateway, "upstream_error"},
		{"timeout", fmt.Errorf("%w: %w", upstream.ErrUpstream, context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeService()
			f.errs["store_0001"] = tc.err
			wantError(t, get(t, newHandler(f), "/api/health-score/store_0001"), tc.status, tc.code)
		})
	}
}

func TestStorePrometheus(t *testing.T) {
	f := newFakeService()
	f.metrics = instrumentation.New()
	h := newHandler(f)

	// Publish a second store so the filter has something to exclude.
	get(t, h, "/api/metrics/store/store_0002")

	rr := get(t, h, "/api/metrics/store/store_0001/prometheus")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `storepulse_store_health_score{store_id="store_0001"}`) {
		t.Errorf("missing health score series:\n%s", body)
	}
	if strings.Contains(body, "store_0002") {
		t.Errorf("exposition leaked another store:\n%s", body)
	}
	if strings.Contains(body, "go_goroutines") {
		t.Errorf("exposition included process metrics:\n%s", body)
	}
}

func TestDiagnostics(t *testing.T) {
	h := newHandler(newFakeService())

	rr := get(t, h, "/api/diagnostics/store/store_0001")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.DiagnosticsResponse
	decode(t, rr, &resp)
	if resp.BaselineSource != "profile" {
		t.Errorf("baseline_source: %q", resp.BaselineSource)
	}
	keys := map[string]string{}
	for _, hint := range resp.Hints {
		keys[hint.Key] = hint.Level
	}
	if keys["failure_rate"] != "warning" {
		t.Errorf("failure_rate hint: got %q, want warning (hints %v)", keys["failure_rate"], keys)
	}
	if _, ok := keys["top_error"]; !ok {
		t.Errorf("missing top_error hint: %v", keys)
	}

	rr = get(t, h, "/api/diagnostics/store/store_0002")
	decode(t, rr, &resp)
	if len(resp.Hints) == 0 || resp.Hints[0].Key != "no_recent_orders" {
		t.Errorf("empty store hints: %+v", resp.Hints)
	}
}

func TestDetectAnomalies_AllStores(t *testing.T) {
	h := newHandler(newFakeService())
	rr := get(t, h, "/api/anomalies/detect")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := rr.Header().Get(api.FailedStoresHeader); got != "" {
		t.Errorf("%s: got %q, want empty", api.FailedStoresHeader, got)
	}
	var as []compute.Anomaly
	decode(t, rr, &as)
	// store_0002 has no orders against a profile of 4 orders/hour.
	var drought bool
	for _, a := range as {
		if a.StoreID == "store_0002" && a.Kind == compute.KindOrderDrought {
			drought = true
		}
	}
	if !drought {
		t.Errorf("expected an order drought for store_0002, got %+v", as)
	}
}

func TestDetectAnomalies_PartialFailure(t *testing.T) {
	f := newFakeService()
	f.errs["store_0002"] = fmt.Errorf("list orders: %w", upstream.ErrUpstream)
	rr := get(t, newHandler(f), "/api/anomalies/detect")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := rr.Header().Get(api.FailedStoresHeader); got != "store_0002" {
		t.Errorf("%s: got %q, want store_0002", api.FailedStoresHeader, got)
	}
}

func TestDetectAnomalies_SingleStoreEmptyIsArray(t *testing.T) {
	f := newFakeService()
	f.orders["store_0001"] = f.orders["store_0001"][:4]
	rr := get(t, newHandler(f), "/api/anomalies/detect?store_id=store_0001")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body: got %s, want []", body)
	}
}

func TestDashboard(t *testing.T) {
	h := newHandler(newFakeService())

	rr := get(t, h, "/api/dashboard/store/store_0001")
	if rr.Code != http.StatusOK {
		t.Fatalf("store status: got %d, want 200", rr.Code)
	}
	var detail service.StoreDetail
	decode(t, rr, &detail)
	if detail.Store.ID != "store_0001" || len(detail.Orders) != 5 {
		t.Errorf("detail: store %q, %d orders", detail.Store.ID, len(detail.Orders))
	}

	rr = get(t, h, "/api/dashboard/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status: got %d, want 200", rr.Code)
	}
	var sum map[string]any
	decode(t, rr, &sum)
	if sum["total_stores"].(float64) != 2 || sum["total_revenue"].(float64) != 100 {
		t.Errorf("summary: %v", sum)
	}
}

func TestDashboardSummary_ListFailure(t *testing.T) {
	f := newFakeService()
	f.listErr = fmt.Errorf("list stores: %w", upstream.ErrUpstream)
	wantError(t, get(t, newHandler(f), "/api/dashboard/summary"), http.StatusBadGateway, "upstream_error")
}

// --- router behaviour -------------------------------------------------------

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(newFakeService())
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(method, "/api/health-score/store_0001", nil))
			wantError(t, rr, http.StatusMethodNotAllowed, "method_not_allowed")
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	wantError(t, get(t, newHandler(newFakeService()), "/api/nope"), http.StatusNotFound, "not_found")
}

func TestProcessMetrics(t *testing.T) {
	f := newFakeService()
	f.metrics = instrumentation.New()
	h := newHandler(f)
	get(t, h, "/health")

	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `storepulse_http_requests_total{code="200",route="/health"}`) {
		t.Errorf("missing request counter:\n%s", rr.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h := newHandler(newFakeService(), "http://localhost:3000")

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "http://localhost:3000", false, http.StatusOK, "http://localhost:3000"},
		{"other origin", http.MethodGet, "http://evil.example", false, http.StatusOK, ""},
		{"no origin", http.MethodGet, "", false, http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://localhost:3000", true, http.StatusNoContent, "http://localhost:3000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tc.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Errorf("Allow-Origin: got %q, want %q", got, tc.wantAllow)
			}
		})
	}
}

func TestRecoversFromPanic(t *testing.T) {
	f := newFakeService()
	h := api.New(panicService{f}, api.Options{Now: func() time.Time { return baseTime }})
	rr := get(t, h, "/api/dashboard/summary")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

type panicService struct{ *fakeService }

func (panicService) Summary(context.Context, time.Time) (service.Summary, error) {
	panic(errors.New("boom"))
}
