package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/metrics"
	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/prices"
	"github.com/foliotrack/portfolio-engine/internal/rebalance"
	"github.com/foliotrack/portfolio-engine/internal/stream"
)

// RefreshResponse is returned from a price refresh.
type RefreshResponse struct {
	Prices      map[string]decimal.Decimal `json:"prices"`
	RefreshedAt time.Time                  `json:"refreshed_at"`
}

// RefreshPrices handles POST /api/v1/portfolios/{portfolioID}/refresh
// Fetches live quotes for every held symbol and persists them.
func (s *Service) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	ctx := r.Context()

	holdings, err := s.loadHoldings(ctx, w, portfolioID)
	if err != nil {
		return
	}
	if len(holdings) == 0 {
		writeJSON(w, http.StatusOK, RefreshResponse{
			Prices:      map[string]decimal.Decimal{},
			RefreshedAt: time.Now().UTC(),
		})
		return
	}

	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}

	priceMap, err := prices.FetchAll(ctx, s.provider, symbols)
	if err != nil {
		slog.Error("price refresh failed", "portfolio", portfolioID, "err", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	now := time.Now().UTC()
	if err := s.store.UpdateHoldingPrices(ctx, portfolioID, priceMap, now); err != nil {
		writeError(w, "failed to save prices", http.StatusInternalServerError)
		return
	}

	slog.Info("prices refreshed", "portfolio", portfolioID, "symbols", len(priceMap))
	s.hub.Broadcast(stream.Event{
		Type:        stream.EventPricesRefreshed,
		PortfolioID: portfolioID,
		Prices:      stringPrices(priceMap),
	})

	writeJSON(w, http.StatusOK, RefreshResponse{Prices: priceMap, RefreshedAt: now})
}

// GetDrift handles GET /api/v1/portfolios/{portfolioID}/drift
// Analyzes allocation drift using last-known prices; call refresh first.
func (s *Service) GetDrift(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")

	holdings, err := s.loadHoldings(r.Context(), w, portfolioID)
	if err != nil {
		return
	}

	snap, err := snapshotFromStored(holdings)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	drifts, totalValue, err := rebalance.Analyze(snap)
	if err != nil {
		writeRebalanceError(w, err)
		return
	}
	if drifts == nil {
		drifts = []rebalance.Drift{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"portfolio_value": totalValue,
		"drifts":          drifts,
	})
}

// Rebalance handles POST /api/v1/portfolios/{portfolioID}/rebalance
// The optional JSON body overrides the default configuration. Quotes are
// fetched live; a single unavailable price fails the whole request.
func (s *Service) Rebalance(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	ctx := r.Context()

	cfg := rebalance.DefaultConfig()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	engine, err := rebalance.New(cfg)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	holdings, err := s.loadHoldings(ctx, w, portfolioID)
	if err != nil {
		return
	}

	snap, err := s.liveSnapshot(ctx, portfolioID, holdings)
	if err != nil {
		metrics.RebalanceRuns.WithLabelValues("error").Inc()
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	start := time.Now()
	report, err := engine.Run(snap)
	metrics.RebalanceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RebalanceRuns.WithLabelValues("error").Inc()
		writeRebalanceError(w, err)
		return
	}

	outcome := "plan"
	if report.IsBalanced {
		outcome = "balanced"
	}
	metrics.RebalanceRuns.WithLabelValues(outcome).Inc()
	for _, tx := range report.Transactions {
		metrics.TransactionsPlanned.WithLabelValues(string(tx.Action)).Inc()
	}

	slog.Info("rebalance planned",
		"portfolio", portfolioID,
		"balanced", report.IsBalanced,
		"transactions", len(report.Transactions),
		"total_cost", report.TotalCost.String(),
	)
	s.hub.Broadcast(stream.Event{
		Type:         stream.EventRebalancePlanned,
		PortfolioID:  portfolioID,
		Transactions: len(report.Transactions),
	})

	writeJSON(w, http.StatusOK, report)
}

// liveSnapshot builds an engine snapshot from freshly fetched quotes and
// keeps stored prices in step with what the report will be computed from.
func (s *Service) liveSnapshot(ctx context.Context, portfolioID string, holdings []model.Holding) (rebalance.Snapshot, error) {
	snap := rebalance.Snapshot{Prices: map[string]decimal.Decimal{}}
	for _, h := range holdings {
		snap.Holdings = append(snap.Holdings, rebalance.Holding{
			Symbol:              h.Symbol,
			Shares:              h.Shares,
			TargetAllocationPct: h.TargetAllocationPct,
		})
	}
	if len(holdings) == 0 {
		return snap, nil
	}

	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}
	priceMap, err := prices.FetchAll(ctx, s.provider, symbols)
	if err != nil {
		return snap, err
	}
	snap.Prices = priceMap

	if err := s.store.UpdateHoldingPrices(ctx, portfolioID, priceMap, time.Now().UTC()); err != nil {
		slog.Error("failed to persist refreshed prices", "portfolio", portfolioID, "err", err)
	}
	return snap, nil
}

// loadHoldings fetches a portfolio's holdings, writing the HTTP error
// itself so callers can just return on failure.
func (s *Service) loadHoldings(ctx context.Context, w http.ResponseWriter, portfolioID string) ([]model.Holding, error) {
	if _, err := s.store.GetPortfolio(ctx, portfolioID); err != nil {
		writeStoreError(w, err, "portfolio")
		return nil, err
	}
	holdings, err := s.store.GetHoldings(ctx, portfolioID)
	if err != nil {
		writeError(w, "failed to load holdings", http.StatusInternalServerError)
		return nil, err
	}
	return holdings, nil
}

// snapshotFromStored builds an engine snapshot from last-known prices.
func snapshotFromStored(holdings []model.Holding) (rebalance.Snapshot, error) {
	snap := rebalance.Snapshot{Prices: map[string]decimal.Decimal{}}
	for _, h := range holdings {
		if !h.LastPrice.IsPositive() {
			return snap, errors.New("no price recorded for " + h.Symbol + ", refresh prices first")
		}
		snap.Holdings = append(snap.Holdings, rebalance.Holding{
			Symbol:              h.Symbol,
			Shares:              h.Shares,
			TargetAllocationPct: h.TargetAllocationPct,
		})
		snap.Prices[h.Symbol] = h.LastPrice
	}
	return snap, nil
}

// writeRebalanceError maps engine sentinel errors onto HTTP statuses.
func writeRebalanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rebalance.ErrPriceUnavailable):
		writeError(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, rebalance.ErrInvalidSnapshot), errors.Is(err, rebalance.ErrInvalidConfig):
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		writeError(w, "rebalancing failed", http.StatusInternalServerError)
	}
}

func stringPrices(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for sym, p := range m {
		out[sym] = p.String()
	}
	return out
}
