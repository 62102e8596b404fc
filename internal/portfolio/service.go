// Package portfolio provides the HTTP handlers and business logic for
// managing portfolios, holdings, price refreshes, and rebalancing.
//
// All monetary values use shopspring/decimal — never float64 for money.
package portfolio

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/prices"
	"github.com/foliotrack/portfolio-engine/internal/store"
	"github.com/foliotrack/portfolio-engine/internal/stream"
)

// Service handles portfolio operations.
type Service struct {
	store    store.Store
	provider prices.Provider
	hub      *stream.Hub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a portfolio service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, provider prices.Provider, hub *stream.Hub) *Service {
	return &Service{store: st, provider: provider, hub: hub}
}

// Routes mounts the portfolio endpoints on r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/portfolios", s.ListPortfolios)
	r.Post("/portfolios", s.CreatePortfolio)
	r.Get("/portfolios/csv-template", s.CSVTemplate)
	r.Route("/portfolios/{portfolioID}", func(r chi.Router) {
		r.Get("/", s.GetPortfolio)
		r.Put("/", s.UpdatePortfolio)
		r.Delete("/", s.DeletePortfolio)
		r.Post("/holdings", s.AddHolding)
		r.Put("/holdings/{holdingID}", s.UpdateHolding)
		r.Delete("/holdings/{holdingID}", s.DeleteHolding)
		r.Post("/import", s.ImportCSV)
		r.Get("/export", s.ExportCSV)
		r.Post("/refresh", s.RefreshPrices)
		r.Get("/drift", s.GetDrift)
		r.Post("/rebalance", s.Rebalance)
		r.Post("/rebalance/execute", s.ExecuteRebalance)
	})
}

// --- Request/Response types ---

// PortfolioRequest is the JSON body for portfolio creation and rename.
type PortfolioRequest struct {
	Name string `json:"name"`
}

// HoldingRequest is the JSON body for adding or updating a holding.
type HoldingRequest struct {
	Symbol              string          `json:"symbol"`
	Shares              decimal.Decimal `json:"shares"`
	TargetAllocationPct decimal.Decimal `json:"target_allocation_pct"`
}

// PortfolioDetail is the GET response: the portfolio with its holdings
// and the total value at last-known prices.
type PortfolioDetail struct {
	model.Portfolio
	Holdings   []model.Holding `json:"holdings"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// --- HTTP Handlers ---

// CreatePortfolio handles POST /api/v1/portfolios
func (s *Service) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	p := &model.Portfolio{
		ID:           uuid.New().String(),
		Name:         req.Name,
		CreatedDate:  now,
		ModifiedDate: now,
	}

	if err := s.store.CreatePortfolio(r.Context(), p); err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}

	slog.Info("portfolio created", "id", p.ID, "name", p.Name)

	writeJSON(w, http.StatusCreated, p)
}

// ListPortfolios handles GET /api/v1/portfolios
func (s *Service) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := s.store.ListPortfolios(r.Context())
	if err != nil {
		writeError(w, "failed to list portfolios", http.StatusInternalServerError)
		return
	}
	if portfolios == nil {
		portfolios = []model.Portfolio{}
	}
	writeJSON(w, http.StatusOK, portfolios)
}

// GetPortfolio handles GET /api/v1/portfolios/{portfolioID}
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "portfolioID")
	ctx := r.Context()

	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}
	holdings, err := s.store.GetHoldings(ctx, id)
	if err != nil {
		writeError(w, "failed to load holdings", http.StatusInternalServerError)
		return
	}
	if holdings == nil {
		holdings = []model.Holding{}
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CurrentValue())
	}

	writeJSON(w, http.StatusOK, PortfolioDetail{
		Portfolio:  *p,
		Holdings:   holdings,
		TotalValue: total,
	})
}

// UpdatePortfolio handles PUT /api/v1/portfolios/{portfolioID}
func (s *Service) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "portfolioID")

	var req PortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}
	p.Name = req.Name
	p.ModifiedDate = time.Now().UTC()

	if err := s.store.UpdatePortfolio(ctx, p); err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePortfolio handles DELETE /api/v1/portfolios/{portfolioID}
func (s *Service) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "portfolioID")

	if err := s.store.DeletePortfolio(r.Context(), id); err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}
	slog.Info("portfolio deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddHolding handles POST /api/v1/portfolios/{portfolioID}/holdings
func (s *Service) AddHolding(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")

	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := prices.ValidateSymbol(symbol); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Shares.IsNegative() {
		writeError(w, "shares must be non-negative", http.StatusBadRequest)
		return
	}
	if !req.TargetAllocationPct.IsPositive() || req.TargetAllocationPct.GreaterThan(decimal.NewFromInt(100)) {
		writeError(w, "target_allocation_pct must be between 0.01 and 100", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := s.store.GetPortfolio(ctx, portfolioID); err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}

	h := &model.Holding{
		ID:                  uuid.New().String(),
		PortfolioID:         portfolioID,
		Symbol:              symbol,
		Shares:              req.Shares,
		TargetAllocationPct: req.TargetAllocationPct,
	}
	if err := s.store.AddHolding(ctx, h); err != nil {
		writeStoreError(w, err, "holding")
		return
	}

	slog.Info("holding added",
		"portfolio", portfolioID,
		"symbol", symbol,
		"shares", req.Shares.String(),
		"target_pct", req.TargetAllocationPct.String(),
	)
	writeJSON(w, http.StatusCreated, h)
}

// UpdateHolding handles PUT /api/v1/portfolios/{portfolioID}/holdings/{holdingID}
func (s *Service) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	holdingID := chi.URLParam(r, "holdingID")

	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Shares.IsNegative() {
		writeError(w, "shares must be non-negative", http.StatusBadRequest)
		return
	}
	if !req.TargetAllocationPct.IsPositive() || req.TargetAllocationPct.GreaterThan(decimal.NewFromInt(100)) {
		writeError(w, "target_allocation_pct must be between 0.01 and 100", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	holdings, err := s.store.GetHoldings(ctx, portfolioID)
	if err != nil {
		writeError(w, "failed to load holdings", http.StatusInternalServerError)
		return
	}
	var target *model.Holding
	for i := range holdings {
		if holdings[i].ID == holdingID {
			target = &holdings[i]
			break
		}
	}
	if target == nil {
		writeError(w, "holding not found", http.StatusNotFound)
		return
	}

	target.Shares = req.Shares
	target.TargetAllocationPct = req.TargetAllocationPct
	if err := s.store.UpdateHolding(ctx, target); err != nil {
		writeStoreError(w, err, "holding")
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// DeleteHolding handles DELETE /api/v1/portfolios/{portfolioID}/holdings/{holdingID}
func (s *Service) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	holdingID := chi.URLParam(r, "holdingID")

	if err := s.store.DeleteHolding(r.Context(), portfolioID, holdingID); err != nil {
		writeStoreError(w, err, "holding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps store sentinel errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, store.ErrConflict):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, "failed to access "+what, http.StatusInternalServerError)
	}
}
