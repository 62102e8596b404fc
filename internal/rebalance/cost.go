package rebalance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeKind selects how a transaction's cost is computed.
type FeeKind string

const (
	// FeeNone charges nothing.
	FeeNone FeeKind = "none"
	// FeeFlat charges a fixed amount per trade regardless of size.
	FeeFlat FeeKind = "flat"
	// FeePercentage charges a fraction of the trade value.
	FeePercentage FeeKind = "percentage"
	// FeeCombined combines flat and percentage per CombineMode.
	FeeCombined FeeKind = "combined"
)

// CombineMode controls how FeeCombined merges the flat and percentage parts.
type CombineMode string

const (
	CombineSum CombineMode = "sum"
	CombineMax CombineMode = "max"
)

// costScale is the number of decimal places for fee rounding (cents).
const costScale int32 = 2

// FeeModel is a pluggable per-trade fee rule.
type FeeModel struct {
	Kind FeeKind `json:"kind"`

	// FlatFee is the fixed per-trade amount, used by FeeFlat and FeeCombined.
	FlatFee decimal.Decimal `json:"flat_fee"`

	// Rate is the fraction of trade value (0.005 = 0.5%), used by
	// FeePercentage and FeeCombined.
	Rate decimal.Decimal `json:"rate"`

	// Combine selects sum or max for FeeCombined. Ignored otherwise.
	Combine CombineMode `json:"combine,omitempty"`
}

// Validate checks the fee parameters.
func (f FeeModel) Validate() error {
	switch f.Kind {
	case FeeNone, FeeFlat, FeePercentage, FeeCombined:
	case "":
		// Zero value behaves as FeeNone.
	default:
		return fmt.Errorf("%w: unknown fee kind %q", ErrInvalidConfig, f.Kind)
	}
	if f.FlatFee.IsNegative() {
		return fmt.Errorf("%w: flat fee must not be negative, got %s",
			ErrInvalidConfig, f.FlatFee)
	}
	if f.Rate.IsNegative() || f.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fee rate must be within [0,1], got %s",
			ErrInvalidConfig, f.Rate)
	}
	if f.Kind == FeeCombined && f.Combine != CombineSum && f.Combine != CombineMax {
		return fmt.Errorf("%w: combined fees require combine mode %q or %q",
			ErrInvalidConfig, CombineSum, CombineMax)
	}
	return nil
}

// Cost returns the fee for one trade of the given value, rounded to cents.
// A zero-cost model is valid.
func (f FeeModel) Cost(tradeValue decimal.Decimal) decimal.Decimal {
	switch f.Kind {
	case FeeFlat:
		return f.FlatFee.Round(costScale)
	case FeePercentage:
		return tradeValue.Mul(f.Rate).Round(costScale)
	case FeeCombined:
		flat := f.FlatFee
		pct := tradeValue.Mul(f.Rate)
		if f.Combine == CombineMax {
			if pct.GreaterThan(flat) {
				return pct.Round(costScale)
			}
			return flat.Round(costScale)
		}
		return flat.Add(pct).Round(costScale)
	default:
		return decimal.Zero
	}
}

// EstimateCosts annotates each transaction with its estimated cost and
// returns the total. Transactions are modified in place.
func EstimateCosts(txs []Transaction, f FeeModel) decimal.Decimal {
	total := decimal.Zero
	for i := range txs {
		cost := f.Cost(txs[i].EstimatedValue)
		txs[i].EstimatedCost = cost
		total = total.Add(cost)
	}
	return total
}
