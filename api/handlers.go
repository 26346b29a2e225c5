/*
handlers.go - HTTP API handlers for the ARR analytics engine

PURPOSE:
  Exposes every analytical view via REST. Handles HTTP request/response,
  query-parameter filter parsing and JSON serialization; all computation is
  delegated to the analytics engine.

ENDPOINTS:
  GET  /api/overview            KPI object for the selected month
  GET  /api/trend               monthly ARR series with forecast
  GET  /api/breakdown           ARR by region / vertical / category
  GET  /api/movements           movement summary + waterfall
  GET  /api/movements/customers per-customer movement classification
  GET  /api/movements/monthly   per-month movement aggregates
  GET  /api/customers           company list with contract details
  GET  /api/renewals            renewal risk distribution + calendar
  GET  /api/cohorts             cohorts by contract-start year
  GET  /api/products            product / category rollups
  GET  /api/cross-sell          cross-sell depth distribution
  POST /api/dataset/load        re-ingest CSVs and swap the dataset
  GET  /api/health              liveness and dataset shape

REQUEST FLOW:
  1. Parse the filter from query parameters
  2. Call the engine (pure, no error states)
  3. Serialize the result

ERROR HANDLING:
  Only the dataset-load path can fail; analytical endpoints degrade to
  zeros the way the engine does. Errors come back as JSON with an
  appropriate status.

SEE ALSO:
  - server.go: router setup and middleware
  - analytics:  the engine the handlers delegate to
*/
package api

import (
	"net/http"
	"sync"

	"encoding/json"

	"github.com/warp/arr-insights/analytics"
	"github.com/warp/arr-insights/arr"
	"github.com/warp/arr-insights/loader"
	"github.com/warp/arr-insights/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the engine and its reload dependencies. The engine pointer
// is swapped atomically under the mutex on re-ingest; every request reads
// one consistent engine.
type Handler struct {
	mu     sync.RWMutex
	engine *analytics.Engine

	Store   *sqlite.Store
	DataDir string
}

// NewHandler creates a handler serving the given engine.
func NewHandler(engine *analytics.Engine, store *sqlite.Store, dataDir string) *Handler {
	return &Handler{engine: engine, Store: store, DataDir: dataDir}
}

func (h *Handler) currentEngine() *analytics.Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine
}

// =============================================================================
// ANALYTICAL ENDPOINTS
// =============================================================================

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Overview(parseFilter(r)))
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Trend(parseFilter(r)))
}

func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Breakdowns(parseFilter(r)))
}

func (h *Handler) GetMovements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Movement(parseFilter(r)))
}

func (h *Handler) GetCustomerMovements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().CustomerMovements(parseFilter(r)))
}

func (h *Handler) GetMonthlyMovements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().MonthlyMovementTrend(parseFilter(r)))
}

func (h *Handler) GetCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Customers(parseFilter(r)))
}

func (h *Handler) GetRenewals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().RenewalRisk(parseFilter(r)))
}

func (h *Handler) GetCohorts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Cohorts(parseFilter(r)))
}

func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().Products(parseFilter(r)))
}

func (h *Handler) GetCrossSell(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentEngine().CrossSell(parseFilter(r)))
}

// =============================================================================
// DATASET LIFECYCLE
// =============================================================================

// LoadDataset re-ingests the CSV directory, persists the collections and
// swaps the live engine.
func (h *Handler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	if h.DataDir == "" {
		writeError(w, http.StatusBadRequest, "no data directory configured", nil)
		return
	}
	src, err := loader.LoadDir(h.DataDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to load source data", err)
		return
	}
	if h.Store != nil {
		if err := h.Store.SaveSource(r.Context(), src); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist dataset", err)
			return
		}
	}

	h.mu.Lock()
	anchor := h.engine.Anchor()
	h.engine = analytics.NewEngine(arr.NewDataset(src), anchor)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": len(src.Snapshots),
		"pipeline":  len(src.Pipeline),
		"anchor":    anchor.String(),
	})
}

// Health reports liveness and the loaded dataset's shape.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	e := h.currentEngine()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"anchor":    e.Anchor().String(),
		"snapshots": len(e.Dataset().Snapshots),
		"pipeline":  len(e.Dataset().Pipeline),
	})
}

// =============================================================================
// FILTER PARSING
// =============================================================================

// parseFilter maps query parameters onto the wire filter shape and
// normalizes it. Array dimensions repeat the parameter (?region=A&region=B).
func parseFilter(r *http.Request) arr.Filter {
	q := r.URL.Query()
	req := arr.FilterRequest{
		Year:     q["year"],
		Month:    q["month"],
		Region:   q["region"],
		Vertical: q["vertical"],
		Segment:  q["segment"],
		Platform: q["platform"],

		QuantumSmart: q.Get("quantumSmart"),
		FeesType:     q.Get("feesType"),

		MovementType:       q.Get("movementType"),
		SortField:          q.Get("sortField"),
		SortDirection:      q.Get("sortDirection"),
		Search:             q.Get("search"),
		RenewalRisk:        q.Get("renewalRisk"),
		ProductCategory:    q.Get("productCategory"),
		ProductSubCategory: q.Get("productSubCategory"),
	}
	switch q.Get("lookbackPeriod") {
	case "1":
		req.LookbackPeriod = 1
	case "3":
		req.LookbackPeriod = 3
	case "6":
		req.LookbackPeriod = 6
	case "12":
		req.LookbackPeriod = 12
	}
	return req.Normalize()
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
