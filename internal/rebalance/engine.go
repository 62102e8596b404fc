// Package rebalance implements the portfolio rebalancing engine: a pure,
// synchronous pipeline that compares a portfolio snapshot against target
// allocations and produces a deterministic, cost-aware set of buy/sell
// transactions.
//
// The pipeline is a stateless function of (snapshot, config) → report:
// the allocation analyzer emits a drift vector, the transaction planner
// turns drift beyond tolerance into an ordered trade list, the cost
// estimator annotates fees, and the report generator assembles before/after
// allocation tables. The engine performs no I/O and holds no state across
// calls, so concurrent invocations need no coordination.
//
// All monetary values use shopspring/decimal — never float64 for money.
package rebalance

import "github.com/shopspring/decimal"

// Engine runs the rebalancing pipeline with a validated configuration.
// It is stateless and safe for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an engine, validating the configuration first.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run executes the full pipeline on one snapshot. Identical inputs always
// yield an identical report. An empty or zero-valued snapshot yields an
// empty, balanced report rather than an error.
func (e *Engine) Run(snap Snapshot) (*Report, error) {
	drifts, totalValue, err := Analyze(snap)
	if err != nil {
		return nil, err
	}

	if len(drifts) == 0 {
		return buildReport(nil, decimal.Zero, nil, nil, decimal.Zero, true), nil
	}

	isBalanced := true
	for _, d := range drifts {
		if d.DriftPct.Abs().GreaterThan(e.cfg.ToleranceBandPct) {
			isBalanced = false
			break
		}
	}

	txs, notes := Plan(drifts, e.cfg)
	totalCost := EstimateCosts(txs, e.cfg.Fees)

	return buildReport(drifts, totalValue, txs, notes, totalCost, isBalanced), nil
}
