package rebalance

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// allocationSumSlack is how far the target allocations may deviate from
// summing to exactly 100.
var allocationSumSlack = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// Analyze computes per-holding current allocation and drift from target.
// The result is sorted by descending absolute drift, ties broken by
// ascending symbol, so output order is deterministic.
//
// A total value of zero (empty portfolio, or every position at zero shares)
// returns an empty drift vector and a zero total — there is nothing to
// rebalance, which is not an error. A missing or non-positive price for any
// holding fails the whole analysis with ErrPriceUnavailable naming the
// symbol: drift cannot be computed correctly without every price.
func Analyze(snap Snapshot) ([]Drift, decimal.Decimal, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, decimal.Zero, err
	}
	if len(snap.Holdings) == 0 {
		return nil, decimal.Zero, nil
	}

	// Every price must be present and positive before any computation.
	for _, h := range snap.Holdings {
		price, ok := snap.Prices[h.Symbol]
		if !ok || !price.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, h.Symbol)
		}
	}

	totalValue := decimal.Zero
	for _, h := range snap.Holdings {
		totalValue = totalValue.Add(h.Shares.Mul(snap.Prices[h.Symbol]))
	}
	if totalValue.IsZero() {
		return nil, decimal.Zero, nil
	}

	drifts := make([]Drift, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		price := snap.Prices[h.Symbol]
		currentValue := h.Shares.Mul(price)
		currentPct := currentValue.Div(totalValue).Mul(hundred)
		targetValue := h.TargetAllocationPct.Div(hundred).Mul(totalValue)

		drifts = append(drifts, Drift{
			Symbol:       h.Symbol,
			Shares:       h.Shares,
			Price:        price,
			CurrentValue: currentValue,
			CurrentPct:   currentPct,
			TargetPct:    h.TargetAllocationPct,
			DriftPct:     currentPct.Sub(h.TargetAllocationPct),
			TargetValue:  targetValue,
			DeltaValue:   targetValue.Sub(currentValue),
		})
	}

	sort.Slice(drifts, func(i, j int) bool {
		ai, aj := drifts[i].DriftPct.Abs(), drifts[j].DriftPct.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return drifts[i].Symbol < drifts[j].Symbol
	})

	return drifts, totalValue, nil
}

// validateSnapshot re-checks the invariants upstream validation must already
// enforce: unique non-empty symbols, non-negative shares, non-negative
// targets, and targets summing to 100 ± 0.01. Defensive: the engine fails
// before computing anything from malformed input.
func validateSnapshot(snap Snapshot) error {
	if len(snap.Holdings) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(snap.Holdings))
	targetSum := decimal.Zero

	for _, h := range snap.Holdings {
		if h.Symbol == "" {
			return fmt.Errorf("%w: holding with empty symbol", ErrInvalidSnapshot)
		}
		if seen[h.Symbol] {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalidSnapshot, h.Symbol)
		}
		seen[h.Symbol] = true

		if h.Shares.IsNegative() {
			return fmt.Errorf("%w: negative shares for %s", ErrInvalidSnapshot, h.Symbol)
		}
		if h.TargetAllocationPct.IsNegative() || h.TargetAllocationPct.GreaterThan(hundred) {
			return fmt.Errorf("%w: target allocation for %s out of range: %s",
				ErrInvalidSnapshot, h.Symbol, h.TargetAllocationPct)
		}
		targetSum = targetSum.Add(h.TargetAllocationPct)
	}

	if targetSum.Sub(hundred).Abs().GreaterThan(allocationSumSlack) {
		return fmt.Errorf("%w: target allocations sum to %s, expected 100",
			ErrInvalidSnapshot, targetSum)
	}
	return nil
}
