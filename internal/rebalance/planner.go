package rebalance

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Plan turns drift beyond the tolerance band into an ordered buy/sell list.
//
// Single pass, no convergence loop: flooring residuals are left as drift.
// All sells are sequenced before all buys so sells can fund buys without
// assuming external cash; within each group, descending absolute delta
// value, ties broken by ascending symbol. With cfg.AvailableCash set, a
// running cash balance caps each buy (sell proceeds net of estimated fees
// are credited as they are sequenced); an unaffordable buy is reduced to
// the largest fundable quantity or dropped with a note.
func Plan(drifts []Drift, cfg Config) ([]Transaction, []string) {
	type candidate struct {
		tx     Transaction
		shares decimal.Decimal // held shares, for sell clamping
		delta  decimal.Decimal // signed target − current, for ordering
	}

	var candidates []candidate
	for _, d := range drifts {
		if d.DriftPct.Abs().LessThanOrEqual(cfg.ToleranceBandPct) {
			continue
		}
		if d.DeltaValue.IsZero() {
			continue
		}

		action := ActionBuy
		if d.DeltaValue.IsNegative() {
			action = ActionSell
		}

		qty := d.DeltaValue.Abs().Div(d.Price)
		if !cfg.AllowFractionalShares {
			qty = qty.Floor()
		}
		if action == ActionSell && qty.GreaterThan(d.Shares) {
			qty = d.Shares
		}
		if !qty.IsPositive() {
			continue
		}
		if cfg.MinTradeAmount.IsPositive() && d.DeltaValue.Abs().LessThan(cfg.MinTradeAmount) {
			continue
		}

		reason := fmt.Sprintf("underweight by %s%%", d.DriftPct.Abs().Round(2))
		if action == ActionSell {
			reason = fmt.Sprintf("overweight by %s%%", d.DriftPct.Round(2))
		}

		candidates = append(candidates, candidate{
			tx: Transaction{
				Symbol:         d.Symbol,
				Action:         action,
				Quantity:       qty,
				EstimatedPrice: d.Price,
				EstimatedValue: qty.Mul(d.Price),
				Reason:         reason,
			},
			shares: d.Shares,
			delta:  d.DeltaValue,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.tx.Action != cj.tx.Action {
			return ci.tx.Action == ActionSell
		}
		ai, aj := ci.delta.Abs(), cj.delta.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return ci.tx.Symbol < cj.tx.Symbol
	})

	if cfg.AvailableCash == nil {
		txs := make([]Transaction, len(candidates))
		for i, c := range candidates {
			txs[i] = c.tx
		}
		return txs, nil
	}

	// Cash-constrained mode: sells credit the balance, buys draw from it.
	balance := *cfg.AvailableCash
	var txs []Transaction
	var notes []string

	for _, c := range candidates {
		tx := c.tx
		if tx.Action == ActionSell {
			proceeds := tx.EstimatedValue.Sub(cfg.Fees.Cost(tx.EstimatedValue))
			balance = balance.Add(proceeds)
			txs = append(txs, tx)
			continue
		}

		if tx.EstimatedValue.GreaterThan(balance) {
			affordable := balance.Div(tx.EstimatedPrice)
			if !cfg.AllowFractionalShares {
				affordable = affordable.Floor()
			}
			if !affordable.IsPositive() {
				notes = append(notes, fmt.Sprintf(
					"dropped BUY %s: insufficient cash (balance %s)",
					tx.Symbol, balance.Round(2)))
				continue
			}
			tx.Quantity = affordable
			tx.EstimatedValue = affordable.Mul(tx.EstimatedPrice)
			tx.Reason += " (reduced to available cash)"
		}
		balance = balance.Sub(tx.EstimatedValue)
		txs = append(txs, tx)
	}

	return txs, notes
}
