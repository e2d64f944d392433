// Package handler serves the mock upstream provider API.
//
//	GET /api/stores?limit=&offset=  paginated store list
//	GET /api/stores/{id}            one store; 404 {"error":"Store not found"}
//	GET /api/stores/{id}/orders     {orders, total}; unknown stores have none
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storepulse/storepulse/mockapi/internal/fixtures"
)

// New returns the mock provider's router. Fixture timestamps are rebased onto
// now() on every request. A nil now uses time.Now.
func New(now func() time.Time, logger *slog.Logger) http.Handler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{now: now, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(allowAnyOrigin)

	r.Get("/api/stores", h.listStores)
	r.Get("/api/stores/{id}", h.getStore)
	r.Get("/api/stores/{id}/orders", h.getOrders)
	return r
}

type handler struct {
	now    func() time.Time
	logger *slog.Logger
}

func (h *handler) listStores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intParam(q.Get("limit"), 100)
	offset := intParam(q.Get("offset"), 0)
	jsonResp(w, http.StatusOK, fixtures.New(h.now()).Stores(limit, offset))
}

func (h *handler) getStore(w http.ResponseWriter, r *http.Request) {
	s, ok := fixtures.New(h.now()).Store(chi.URLParam(r, "id"))
	if !ok {
		jsonResp(w, http.StatusNotFound, map[string]string{"error": "Store not found"})
		return
	}
	jsonResp(w, http.StatusOK, s)
}

func (h *handler) getOrders(w http.ResponseWriter, r *http.Request) {
	orders := fixtures.New(h.now()).Orders(chi.URLParam(r, "id"))
	jsonResp(w, http.StatusOK, map[string]any{"orders": orders, "total": len(orders)})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("mockapi: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// allowAnyOrigin mirrors the permissive CORS of the recorded provider.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// intParam parses an integer, falling back to def when the value is missing,
// malformed or zero.
func intParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return def
	}
	return n
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
