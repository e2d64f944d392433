package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storepulse/storepulse/server/internal/compute"
	"github.com/storepulse/storepulse/server/internal/instrumentation"
	"github.com/storepulse/storepulse/server/internal/service"
	"github.com/storepulse/storepulse/server/internal/upstream"
)

// Service is the part of *service.Service the API depends on.
type Service interface {
	Evaluate(ctx context.Context, storeID string, now time.Time) (*service.Snapshot, error)
	DetectAnomalies(ctx context.Context, storeID string, now time.Time) ([]compute.Anomaly, service.Batch, error)
	Summary(ctx context.Context, now time.Time) (service.Summary, error)
	StoreDetail(ctx context.Context, storeID string) (service.StoreDetail, error)
}

// Options configures the handler. Every field is optional.
type Options struct {
	Metrics     *instrumentation.Metrics
	Logger      *slog.Logger
	CORSOrigins []string
	// Now is the evaluation clock; defaults to time.Now.
	Now     func() time.Time
	Version string
}

// Handler serves the HTTP API.
type Handler struct {
	svc     Service
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
	version string
	router  chi.Router
}

// New creates a Handler wired to svc and registers all routes.
func New(svc Service, opts Options) *Handler {
	h := &Handler{
		svc:     svc,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Now,
		version: opts.Version,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "api")
	if h.now == nil {
		h.now = time.Now
	}
	if h.version == "" {
		h.version = "dev"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(h.logger))
	r.Use(metricsMiddleware(h.metrics))
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		jsonErr(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/metrics", h.processMetrics)
	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics/store/{store_id}", h.storeMetrics)
		r.Get("/metrics/store/{store_id}/prometheus", h.storePrometheus)
		r.Get("/health-score/{store_id}", h.healthScore)
		r.Get("/diagnostics/store/{store_id}", h.diagnostics)
		r.Get("/anomalies/detect", h.detectAnomalies)
		r.Get("/dashboard/store/{store_id}", h.dashboardStore)
		r.Get("/dashboard/summary", h.dashboardSummary)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, RootResponse{Message: "StorePulse API", Version: h.version})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) processMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		jsonErr(w, http.StatusNotFound, codeNotFound, "metrics are disabled")
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}

func (h *Handler) storeMetrics(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.evaluate(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, snap.Metrics)
}

// storePrometheus evaluates the store first so the exported gauges are
// current and unknown stores get a 404 rather than an empty body.
func (h *Handler) storePrometheus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.evaluate(w, r)
	if !ok {
		return
	}
	if h.metrics == nil {
		jsonErr(w, http.StatusNotFound, codeNotFound, "metrics are disabled")
		return
	}
	body, contentType, err := h.metrics.StoreExposition(snap.Metrics.StoreID)
	if err != nil {
		h.logger.Error("api: store exposition", "store", snap.Metrics.StoreID, "err", err)
		jsonErr(w, http.StatusInternalServerError, codeInternal, "could not render metrics")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

func (h *Handler) healthScore(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.evaluate(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, snap.Score)
}

func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.evaluate(w, r)
	if !ok {
		return
	}
	resp := DiagnosticsResponse{
		StoreID:   snap.Metrics.StoreID,
		Score:     snap.Score.Score,
		Status:    snap.Score.Status,
		Hints:     buildDiagnostics(snap),
		Timestamp: snap.At,
	}
	if snap.Baseline != nil {
		resp.BaselineSource = string(snap.Baseline.Source)
	}
	jsonResp(w, http.StatusOK, resp)
}

// detectAnomalies scans one store, or every store when store_id is absent.
// Stores that could not be evaluated during a full scan are named in the
// FailedStoresHeader; the body still carries the anomalies of the rest.
func (h *Handler) detectAnomalies(w http.ResponseWriter, r *http.Request) {
	storeID := strings.TrimSpace(r.URL.Query().Get("store_id"))
	anomalies, batch, err := h.svc.DetectAnomalies(r.Context(), storeID, h.now())
	if err != nil {
		h.serviceErr(w, storeID, err)
		return
	}
	if failed := batch.Failed(); len(failed) > 0 {
		ids := make([]string, 0, len(failed))
		for _, f := range failed {
			ids = append(ids, f.StoreID)
		}
		w.Header().Set(FailedStoresHeader, strings.Join(ids, ","))
	}
	if anomalies == nil {
		anomalies = []compute.Anomaly{}
	}
	jsonResp(w, http.StatusOK, anomalies)
}

func (h *Handler) dashboardStore(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "store_id")
	detail, err := h.svc.StoreDetail(r.Context(), storeID)
	if err != nil {
		h.serviceErr(w, storeID, err)
		return
	}
	jsonResp(w, http.StatusOK, detail)
}

func (h *Handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), h.now())
	if err != nil {
		h.serviceErr(w, "", err)
		return
	}
	jsonResp(w, http.StatusOK, sum)
}

// --- helpers ----------------------------------------------------------------

// evaluate runs the service for the {store_id} path parameter. On failure it
// writes the error response and returns false.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) (*service.Snapshot, bool) {
	storeID := chi.URLParam(r, "store_id")
	snap, err := h.svc.Evaluate(r.Context(), storeID, h.now())
	if err != nil {
		h.serviceErr(w, storeID, err)
		return nil, false
	}
	return snap, true
}

// serviceErr maps a service error onto a status code.
func (h *Handler) serviceErr(w http.ResponseWriter, storeID string, err error) {
	switch {
	case errors.Is(err, upstream.ErrStoreNotFound):
		jsonErr(w, http.StatusNotFound, codeStoreNotFound, fmt.Sprintf("store %q not found", storeID))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("api: upstream timed out", "store", storeID, "err", err)
		jsonErr(w, http.StatusGatewayTimeout, codeUpstreamTimeout, "upstream provider timed out")
	default:
		h.logger.Error("api: upstream failure", "store", storeID, "err", err)
		jsonErr(w, http.StatusBadGateway, codeUpstreamError, "upstream provider unavailable")
	}
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, errCode, msg string) {
	jsonResp(w, code, errorResponse{Error: errCode, Message: msg})
}
