package rebalance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config is the fully-enumerated rebalancing configuration. Construct with
// DefaultConfig and override fields; Engine construction validates it.
type Config struct {
	// ToleranceBandPct is the drift magnitude (in percentage points) below
	// which a holding is left untouched.
	ToleranceBandPct decimal.Decimal `json:"tolerance_band_pct"`

	// MinTradeAmount drops any planned trade whose value is smaller.
	// Zero disables the filter.
	MinTradeAmount decimal.Decimal `json:"min_trade_amount"`

	// AllowFractionalShares permits non-integer quantities. When false,
	// quantities are floored to whole shares and the residual value is
	// left as drift (single-pass, no redistribution).
	AllowFractionalShares bool `json:"allow_fractional_shares"`

	// Fees is the per-trade fee model applied by the cost estimator and,
	// in cash-constrained mode, to sell proceeds.
	Fees FeeModel `json:"fees"`

	// AvailableCash, when non-nil, enables cash-constrained planning:
	// buys are capped by sell proceeds (net of fees) plus this amount.
	// Nil means unconstrained.
	AvailableCash *decimal.Decimal `json:"available_cash,omitempty"`
}

// DefaultConfig returns the default policy: 2% tolerance band, no minimum
// trade, whole shares only, no fees, unconstrained cash.
func DefaultConfig() Config {
	return Config{
		ToleranceBandPct: decimal.NewFromInt(2),
		MinTradeAmount:   decimal.Zero,
		Fees:             FeeModel{Kind: FeeNone},
	}
}

// Validate checks the configuration. A MinTradeAmount larger than the
// portfolio value is not an error (it just yields a no-op plan); only
// genuinely malformed values are rejected.
func (c Config) Validate() error {
	if c.ToleranceBandPct.IsNegative() {
		return fmt.Errorf("%w: tolerance band must not be negative, got %s",
			ErrInvalidConfig, c.ToleranceBandPct)
	}
	if c.MinTradeAmount.IsNegative() {
		return fmt.Errorf("%w: minimum trade amount must not be negative, got %s",
			ErrInvalidConfig, c.MinTradeAmount)
	}
	if c.AvailableCash != nil && c.AvailableCash.IsNegative() {
		return fmt.Errorf("%w: available cash must not be negative, got %s",
			ErrInvalidConfig, c.AvailableCash)
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	return nil
}
