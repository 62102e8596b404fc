package rebalance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFeeModel_Cost(t *testing.T) {
	value := d(2000)

	tests := []struct {
		name string
		fees FeeModel
		want decimal.Decimal
	}{
		{"zero value model", FeeModel{}, decimal.Zero},
		{"none", FeeModel{Kind: FeeNone}, decimal.Zero},
		{"flat", FeeModel{Kind: FeeFlat, FlatFee: d(5)}, d(5)},
		{"percentage", FeeModel{Kind: FeePercentage, Rate: d(0.005)}, d(10)},
		{
			"combined sum",
			FeeModel{Kind: FeeCombined, FlatFee: d(5), Rate: d(0.005), Combine: CombineSum},
			d(15),
		},
		{
			"combined max picks percentage",
			FeeModel{Kind: FeeCombined, FlatFee: d(5), Rate: d(0.005), Combine: CombineMax},
			d(10),
		},
		{
			"combined max picks flat",
			FeeModel{Kind: FeeCombined, FlatFee: d(25), Rate: d(0.005), Combine: CombineMax},
			d(25),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fees.Cost(value)
			if !got.Equal(tt.want) {
				t.Errorf("expected cost %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFeeModel_CostRoundedToCents(t *testing.T) {
	fees := FeeModel{Kind: FeePercentage, Rate: d(0.0033)}
	got := fees.Cost(d(1234.56))
	if got.Exponent() < -2 {
		t.Errorf("cost should be rounded to cents, got %s", got)
	}
}

func TestFeeModel_Validate(t *testing.T) {
	tests := []struct {
		name string
		fees FeeModel
		ok   bool
	}{
		{"none", FeeModel{Kind: FeeNone}, true},
		{"negative flat fee", FeeModel{Kind: FeeFlat, FlatFee: d(-1)}, false},
		{"negative rate", FeeModel{Kind: FeePercentage, Rate: d(-0.1)}, false},
		{"rate above one", FeeModel{Kind: FeePercentage, Rate: d(1.5)}, false},
		{"combined without mode", FeeModel{Kind: FeeCombined, FlatFee: d(1), Rate: d(0.01)}, false},
		{"unknown kind", FeeModel{Kind: "tiered"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fees.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEstimateCosts_AnnotatesAndTotals(t *testing.T) {
	txs := []Transaction{
		{Symbol: "MSFT", Action: ActionSell, EstimatedValue: d(2000)},
		{Symbol: "AAPL", Action: ActionBuy, EstimatedValue: d(2000)},
	}

	total := EstimateCosts(txs, FeeModel{Kind: FeeFlat, FlatFee: d(5)})
	if !total.Equal(d(10)) {
		t.Errorf("expected total cost 10, got %s", total)
	}
	for _, tx := range txs {
		if !tx.EstimatedCost.Equal(d(5)) {
			t.Errorf("%s: expected cost 5, got %s", tx.Symbol, tx.EstimatedCost)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	negCash := d(-100)

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative tolerance", func(c *Config) { c.ToleranceBandPct = d(-1) }, false},
		{"negative min trade", func(c *Config) { c.MinTradeAmount = d(-10) }, false},
		{"negative cash", func(c *Config) { c.AvailableCash = &negCash }, false},
		{"bad fees", func(c *Config) { c.Fees = FeeModel{Kind: FeeFlat, FlatFee: d(-5)} }, false},
		{"zero tolerance is valid", func(c *Config) { c.ToleranceBandPct = decimal.Zero }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
