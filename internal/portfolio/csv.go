package portfolio

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foliotrack/portfolio-engine/internal/csvio"
	"github.com/foliotrack/portfolio-engine/internal/metrics"
	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/stream"
)

// ImportResponse is returned from a CSV import.
type ImportResponse struct {
	Imported int      `json:"imported"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportCSV handles POST /api/v1/portfolios/{portfolioID}/import
// The request body is the raw CSV content. The import replaces the
// portfolio's holdings atomically; validation failures leave the
// existing holdings untouched.
func (s *Service) ImportCSV(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	ctx := r.Context()

	if _, err := s.store.GetPortfolio(ctx, portfolioID); err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}

	res, err := csvio.Import(r.Body)
	if err != nil {
		metrics.CSVImports.WithLabelValues("invalid").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(res.Errors) > 0 {
		metrics.CSVImports.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, ImportResponse{
			Errors:   res.Errors,
			Warnings: res.Warnings,
		})
		return
	}

	holdings := make([]model.Holding, 0, len(res.Rows))
	for _, row := range res.Rows {
		holdings = append(holdings, model.Holding{
			ID:                  uuid.New().String(),
			PortfolioID:         portfolioID,
			Symbol:              row.Symbol,
			Shares:              row.Shares,
			TargetAllocationPct: row.AllocationPct,
		})
	}
	if err := s.store.ReplaceHoldings(ctx, portfolioID, holdings); err != nil {
		writeError(w, "failed to save imported holdings", http.StatusInternalServerError)
		return
	}

	metrics.CSVImports.WithLabelValues("ok").Inc()
	slog.Info("holdings imported", "portfolio", portfolioID, "count", len(holdings))
	s.hub.Broadcast(stream.Event{
		Type:        stream.EventHoldingsImported,
		PortfolioID: portfolioID,
	})

	writeJSON(w, http.StatusOK, ImportResponse{
		Imported: len(holdings),
		Warnings: res.Warnings,
	})
}

// ExportCSV handles GET /api/v1/portfolios/{portfolioID}/export
func (s *Service) ExportCSV(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	ctx := r.Context()

	p, err := s.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		writeStoreError(w, err, "portfolio")
		return
	}
	holdings, err := s.store.GetHoldings(ctx, portfolioID)
	if err != nil {
		writeError(w, "failed to load holdings", http.StatusInternalServerError)
		return
	}

	filename := p.Name + "_" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := csvio.Export(w, holdings); err != nil {
		slog.Error("csv export failed", "portfolio", portfolioID, "err", err)
	}
}

// CSVTemplate handles GET /api/v1/portfolios/csv-template
// Returns a sample import file for users to start from.
func (s *Service) CSVTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio_template.csv"`)
	w.Write([]byte(csvio.SampleCSV()))
}
