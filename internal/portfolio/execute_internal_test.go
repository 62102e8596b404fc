package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/rebalance"
)

func TestApplyPlan_SellClampsAtZero(t *testing.T) {
	holdings := []model.Holding{
		{Symbol: "AAPL", Shares: decimal.NewFromInt(5)},
	}
	txs := []rebalance.Transaction{
		{Symbol: "AAPL", Action: rebalance.ActionSell, Quantity: decimal.NewFromInt(8), EstimatedPrice: decimal.NewFromInt(100)},
	}

	updated, skipped := applyPlan(holdings, txs)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %v", skipped)
	}
	if !updated[0].Shares.IsZero() {
		t.Errorf("oversized sell must clamp shares at zero, got %s", updated[0].Shares)
	}
	// Input slice untouched.
	if !holdings[0].Shares.Equal(decimal.NewFromInt(5)) {
		t.Errorf("input holdings mutated: %s", holdings[0].Shares)
	}
}

func TestApplyPlan_SkipsUnknownSymbols(t *testing.T) {
	holdings := []model.Holding{
		{Symbol: "AAPL", Shares: decimal.NewFromInt(10)},
	}
	txs := []rebalance.Transaction{
		{Symbol: "MSFT", Action: rebalance.ActionBuy, Quantity: decimal.NewFromInt(3), EstimatedPrice: decimal.NewFromInt(200)},
		{Symbol: "AAPL", Action: rebalance.ActionBuy, Quantity: decimal.NewFromInt(2), EstimatedPrice: decimal.NewFromInt(100)},
	}

	updated, skipped := applyPlan(holdings, txs)
	if len(skipped) != 1 || skipped[0] != "MSFT" {
		t.Fatalf("expected MSFT skipped, got %v", skipped)
	}
	if !updated[0].Shares.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected AAPL at 12 shares, got %s", updated[0].Shares)
	}
}
