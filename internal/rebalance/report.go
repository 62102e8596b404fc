package rebalance

import "github.com/shopspring/decimal"

// pctScale is the number of decimal places for allocation percentages in
// the report tables.
const pctScale int32 = 4

// buildReport assembles the final report. The after-allocation table is a
// pure projection: every transaction is applied at its estimated price
// against totalValue minus totalCost, then percentages are recomputed.
// The caller's snapshot is never touched.
func buildReport(drifts []Drift, totalValue decimal.Decimal, txs []Transaction,
	notes []string, totalCost decimal.Decimal, isBalanced bool) *Report {

	before := make(map[string]decimal.Decimal, len(drifts))
	after := make(map[string]decimal.Decimal, len(drifts))

	values := make(map[string]decimal.Decimal, len(drifts))
	for _, d := range drifts {
		before[d.Symbol] = d.CurrentPct.Round(pctScale)
		values[d.Symbol] = d.CurrentValue
	}

	for _, tx := range txs {
		switch tx.Action {
		case ActionBuy:
			values[tx.Symbol] = values[tx.Symbol].Add(tx.EstimatedValue)
		case ActionSell:
			values[tx.Symbol] = values[tx.Symbol].Sub(tx.EstimatedValue)
		}
	}

	projected := totalValue.Sub(totalCost)
	for _, d := range drifts {
		pct := decimal.Zero
		if projected.IsPositive() {
			pct = values[d.Symbol].Div(projected).Mul(hundred).Round(pctScale)
		}
		after[d.Symbol] = pct
	}

	if txs == nil {
		txs = []Transaction{}
	}
	if drifts == nil {
		drifts = []Drift{}
	}

	return &Report{
		PortfolioValue:          totalValue,
		IsBalanced:              isBalanced,
		Drifts:                  drifts,
		BeforeAllocation:        before,
		AfterAllocation:         after,
		Transactions:            txs,
		Notes:                   notes,
		TotalCost:               totalCost,
		ProjectedPortfolioValue: projected,
	}
}
