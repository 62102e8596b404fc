package rebalance

import "github.com/shopspring/decimal"

// Action is the direction of a planned transaction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Holding is one position in the input snapshot. Shares of zero with a
// positive target is valid (a pure buy from zero), as is positive shares
// with a zero target (a sell-to-zero candidate).
type Holding struct {
	Symbol              string          `json:"symbol"`
	Shares              decimal.Decimal `json:"shares"`
	TargetAllocationPct decimal.Decimal `json:"target_allocation_pct"`
}

// Snapshot is the fully-resolved, immutable input to the engine: validated
// holdings plus a price for every symbol. The engine never fetches prices
// itself; the caller resolves them first.
type Snapshot struct {
	Holdings []Holding                  `json:"holdings"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

// Drift describes how far one holding sits from its target allocation.
type Drift struct {
	Symbol       string          `json:"symbol"`
	Shares       decimal.Decimal `json:"shares"`
	Price        decimal.Decimal `json:"price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CurrentPct   decimal.Decimal `json:"current_pct"`
	TargetPct    decimal.Decimal `json:"target_pct"`
	DriftPct     decimal.Decimal `json:"drift_pct"` // current − target
	TargetValue  decimal.Decimal `json:"target_value"`
	DeltaValue   decimal.Decimal `json:"delta_value"` // target − current
}

// Transaction is one planned buy or sell. EstimatedValue is always
// Quantity × EstimatedPrice; EstimatedCost is filled in by the cost
// estimator.
type Transaction struct {
	Symbol         string          `json:"symbol"`
	Action         Action          `json:"action"`
	Quantity       decimal.Decimal `json:"quantity"`
	EstimatedPrice decimal.Decimal `json:"estimated_price"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
	Reason         string          `json:"reason,omitempty"`
}

// Report is the engine's output: before/after allocation tables, the
// ordered transaction list with costs, and totals. It holds no references
// to the caller's snapshot.
type Report struct {
	PortfolioValue          decimal.Decimal            `json:"portfolio_value"`
	IsBalanced              bool                       `json:"is_balanced"`
	Drifts                  []Drift                    `json:"drifts"`
	BeforeAllocation        map[string]decimal.Decimal `json:"before_allocation"`
	AfterAllocation         map[string]decimal.Decimal `json:"after_allocation"`
	Transactions            []Transaction              `json:"transactions"`
	Notes                   []string                   `json:"notes,omitempty"`
	TotalCost               decimal.Decimal            `json:"total_cost"`
	ProjectedPortfolioValue decimal.Decimal            `json:"projected_portfolio_value"`
}
