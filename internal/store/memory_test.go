package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

func seedPortfolio(t *testing.T, s *MemoryStore, id, name string) {
	t.Helper()
	err := s.CreatePortfolio(context.Background(), &model.Portfolio{
		ID: id, Name: name, CreatedDate: time.Now().UTC(), ModifiedDate: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to seed portfolio: %v", err)
	}
}

func TestMemoryStore_PortfolioNameConflict(t *testing.T) {
	s := NewMemoryStore()
	seedPortfolio(t, s, "p1", "Retirement")

	err := s.CreatePortfolio(context.Background(), &model.Portfolio{ID: "p2", Name: "Retirement"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate name, got %v", err)
	}
}

func TestMemoryStore_GetPortfolioNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetPortfolio(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_HoldingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedPortfolio(t, s, "p1", "Growth")

	h := &model.Holding{
		ID: "h1", PortfolioID: "p1", Symbol: "AAPL",
		Shares:              decimal.NewFromInt(40),
		TargetAllocationPct: decimal.NewFromInt(60),
	}
	if err := s.AddHolding(ctx, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddHolding(ctx, h); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate symbol, got %v", err)
	}

	prices := map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(185)}
	if err := s.UpdateHoldingPrices(ctx, "p1", prices, time.Now().UTC()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	holdings, err := s.GetHoldings(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holdings) != 1 || !holdings[0].LastPrice.Equal(decimal.NewFromInt(185)) {
		t.Errorf("expected price 185 recorded, got %+v", holdings)
	}

	if err := s.DeleteHolding(ctx, "p1", "h1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	holdings, _ = s.GetHoldings(ctx, "p1")
	if len(holdings) != 0 {
		t.Errorf("expected no holdings after delete, got %d", len(holdings))
	}
}

func TestMemoryStore_ReplaceHoldings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedPortfolio(t, s, "p1", "Growth")

	_ = s.AddHolding(ctx, &model.Holding{ID: "h1", PortfolioID: "p1", Symbol: "AAPL"})

	replacement := []model.Holding{
		{ID: "h2", PortfolioID: "p1", Symbol: "VTI"},
		{ID: "h3", PortfolioID: "p1", Symbol: "BND"},
	}
	if err := s.ReplaceHoldings(ctx, "p1", replacement); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	holdings, _ := s.GetHoldings(ctx, "p1")
	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings after replace, got %d", len(holdings))
	}
	// Sorted by symbol.
	if holdings[0].Symbol != "BND" || holdings[1].Symbol != "VTI" {
		t.Errorf("expected BND, VTI order, got %s, %s", holdings[0].Symbol, holdings[1].Symbol)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedPortfolio(t, s, "p1", "Growth")

	p, _ := s.GetPortfolio(ctx, "p1")
	p.Name = "Mutated"

	again, _ := s.GetPortfolio(ctx, "p1")
	if again.Name != "Growth" {
		t.Error("store must not expose internal state to mutation")
	}
}

func TestMemoryStore_WatchlistItems(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.CreateWatchlist(ctx, &model.Watchlist{ID: "w1", Name: "Tech"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = s.AddWatchedItem(ctx, &model.WatchedItem{ID: "i2", WatchlistID: "w1", Symbol: "NVDA", OrderIndex: 1})
	_ = s.AddWatchedItem(ctx, &model.WatchedItem{ID: "i1", WatchlistID: "w1", Symbol: "AMD", OrderIndex: 0})

	items, err := s.GetWatchedItems(ctx, "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Symbol != "AMD" {
		t.Errorf("expected AMD first by order index, got %+v", items)
	}

	if err := s.DeleteWatchlist(ctx, "w1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetWatchedItems(ctx, "w1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after watchlist delete, got %v", err)
	}
}
