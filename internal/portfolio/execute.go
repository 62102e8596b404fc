package portfolio

import (
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
	"github.com/foliotrack/portfolio-engine/internal/rebalance"
	"github.com/foliotrack/portfolio-engine/internal/stream"
)

// ExecuteRequest is the JSON body for applying a rebalance. The engine
// configuration fields override the defaults; dry_run defaults to true
// so a bare POST never mutates holdings.
type ExecuteRequest struct {
	rebalance.Config
	DryRun *bool `json:"dry_run"`
}

// ExecuteResponse is returned from POST .../rebalance/execute.
type ExecuteResponse struct {
	Executed          bool              `json:"executed"`
	DryRun            bool              `json:"dry_run"`
	Message           string            `json:"message"`
	TransactionsCount int               `json:"transactions_count"`
	SkippedSymbols    []string          `json:"skipped_symbols,omitempty"`
	TotalCost         decimal.Decimal   `json:"total_cost"`
	Report            *rebalance.Report `json:"report"`
}

// ExecuteRebalance handles POST /api/v1/portfolios/{portfolioID}/rebalance/execute
// Plans against live quotes exactly like POST .../rebalance, then applies
// the plan to stored holdings: BUY adds shares, SELL subtracts, clamped at
// zero. Holdings are swapped in one atomic pass. With dry_run (the
// default) the plan is returned without touching the store.
func (s *Service) ExecuteRebalance(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	ctx := r.Context()

	req := ExecuteRequest{Config: rebalance.DefaultConfig()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	engine, err := rebalance.New(req.Config)
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
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	report, err := engine.Run(snap)
	if err != nil {
		writeRebalanceError(w, err)
		return
	}

	if report.IsBalanced || len(report.Transactions) == 0 {
		writeJSON(w, http.StatusOK, ExecuteResponse{
			Message:   "portfolio is already balanced within tolerance",
			DryRun:    dryRun,
			TotalCost: report.TotalCost,
			Report:    report,
		})
		return
	}

	if dryRun {
		writeJSON(w, http.StatusOK, ExecuteResponse{
			DryRun:            true,
			Message:           "dry run completed successfully",
			TransactionsCount: len(report.Transactions),
			TotalCost:         report.TotalCost,
			Report:            report,
		})
		return
	}

	updated, skipped := applyPlan(holdings, report.Transactions)
	if err := s.store.ReplaceHoldings(ctx, portfolioID, updated); err != nil {
		writeError(w, "failed to update holdings", http.StatusInternalServerError)
		return
	}

	metrics.RebalanceExecutions.Inc()
	slog.Info("rebalance executed",
		"portfolio", portfolioID,
		"transactions", len(report.Transactions),
		"skipped", len(skipped),
		"total_cost", report.TotalCost.String(),
	)
	s.hub.Broadcast(stream.Event{
		Type:         stream.EventRebalanceExecuted,
		PortfolioID:  portfolioID,
		Transactions: len(report.Transactions),
	})

	writeJSON(w, http.StatusOK, ExecuteResponse{
		Executed:          true,
		Message:           "rebalance applied to holdings",
		TransactionsCount: len(report.Transactions),
		SkippedSymbols:    skipped,
		TotalCost:         report.TotalCost,
		Report:            report,
	})
}

// applyPlan returns a copy of holdings with each transaction applied.
// Transactions for symbols not held are skipped; sells never take a
// position below zero.
func applyPlan(holdings []model.Holding, txs []rebalance.Transaction) ([]model.Holding, []string) {
	updated := make([]model.Holding, len(holdings))
	copy(updated, holdings)

	bySym := make(map[string]*model.Holding, len(updated))
	for i := range updated {
		bySym[updated[i].Symbol] = &updated[i]
	}

	var skipped []string
	now := time.Now().UTC()
	for _, tx := range txs {
		h, ok := bySym[tx.Symbol]
		if !ok {
			skipped = append(skipped, tx.Symbol)
			continue
		}
		switch tx.Action {
		case rebalance.ActionBuy:
			h.Shares = h.Shares.Add(tx.Quantity)
		case rebalance.ActionSell:
			h.Shares = h.Shares.Sub(tx.Quantity)
			if h.Shares.IsNegative() {
				h.Shares = decimal.Zero
			}
		}
		h.LastPrice = tx.EstimatedPrice
		h.PriceUpdatedAt = now
	}
	return updated, skipped
}
