package rebalance

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func h(symbol string, shares, target float64) Holding {
	return Holding{Symbol: symbol, Shares: d(shares), TargetAllocationPct: d(target)}
}

func prices(pairs ...any) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = d(pairs[i+1].(float64))
	}
	return m
}

func TestAnalyze_DriftComputation(t *testing.T) {
	snap := Snapshot{
		Holdings: []Holding{h("AAPL", 40, 60), h("MSFT", 60, 40)},
		Prices:   prices("AAPL", 100.0, "MSFT", 100.0),
	}

	drifts, total, err := Analyze(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(d(10000)) {
		t.Errorf("expected total 10000, got %s", total)
	}
	if len(drifts) != 2 {
		t.Fatalf("expected 2 drifts, got %d", len(drifts))
	}

	for _, dr := range drifts {
		switch dr.Symbol {
		case "AAPL":
			if !dr.CurrentPct.Equal(d(40)) {
				t.Errorf("AAPL current pct: expected 40, got %s", dr.CurrentPct)
			}
			if !dr.DriftPct.Equal(d(-20)) {
				t.Errorf("AAPL drift: expected -20, got %s", dr.DriftPct)
			}
			if !dr.DeltaValue.Equal(d(2000)) {
				t.Errorf("AAPL delta value: expected 2000, got %s", dr.DeltaValue)
			}
		case "MSFT":
			if !dr.DriftPct.Equal(d(20)) {
				t.Errorf("MSFT drift: expected 20, got %s", dr.DriftPct)
			}
		}
	}
}

func TestAnalyze_SortedByAbsDriftThenSymbol(t *testing.T) {
	// ZZZ and AAA carry equal absolute drift; BBB drifts hardest.
	snap := Snapshot{
		Holdings: []Holding{
			h("ZZZ", 30, 20), // current 30%, drift +10
			h("AAA", 10, 20), // current 10%, drift -10
			h("BBB", 60, 40), // current 60%, drift +20
			h("CCC", 0, 20),  // current 0%, drift -20
		},
		Prices: prices("ZZZ", 10.0, "AAA", 10.0, "BBB", 10.0, "CCC", 10.0),
	}

	drifts, _, err := Analyze(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, len(drifts))
	for i, dr := range drifts {
		got[i] = dr.Symbol
	}
	want := []string{"BBB", "CCC", "AAA", "ZZZ"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestAnalyze_MissingPrice(t *testing.T) {
	snap := Snapshot{
		Holdings: []Holding{h("AAPL", 40, 60), h("MSFT", 60, 40)},
		Prices:   prices("AAPL", 100.0),
	}

	_, _, err := Analyze(snap)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "MSFT") {
		t.Errorf("error should name the symbol: %v", err)
	}
}

func TestAnalyze_NonPositivePrice(t *testing.T) {
	snap := Snapshot{
		Holdings: []Holding{h("AAPL", 40, 60), h("MSFT", 60, 40)},
		Prices:   prices("AAPL", 100.0, "MSFT", 0.0),
	}

	_, _, err := Analyze(snap)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable for zero price, got %v", err)
	}
}

func TestAnalyze_ZeroValuePortfolio(t *testing.T) {
	// All positions at zero shares: nothing to rebalance, not an error.
	snap := Snapshot{
		Holdings: []Holding{h("AAPL", 0, 60), h("MSFT", 0, 40)},
		Prices:   prices("AAPL", 100.0, "MSFT", 100.0),
	}

	drifts, total, err := Analyze(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drifts) != 0 || !total.IsZero() {
		t.Errorf("expected empty drift vector and zero total, got %d drifts, total %s",
			len(drifts), total)
	}
}

func TestAnalyze_EmptyPortfolio(t *testing.T) {
	drifts, total, err := Analyze(Snapshot{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drifts) != 0 || !total.IsZero() {
		t.Errorf("expected empty result for empty snapshot")
	}
}

func TestAnalyze_RejectsMalformedSnapshots(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{
			"duplicate symbol",
			Snapshot{
				Holdings: []Holding{h("AAPL", 10, 50), h("AAPL", 10, 50)},
				Prices:   prices("AAPL", 100.0),
			},
		},
		{
			"negative shares",
			Snapshot{
				Holdings: []Holding{h("AAPL", -1, 100)},
				Prices:   prices("AAPL", 100.0),
			},
		},
		{
			"allocations do not sum to 100",
			Snapshot{
				Holdings: []Holding{h("AAPL", 10, 50), h("MSFT", 10, 40)},
				Prices:   prices("AAPL", 100.0, "MSFT", 100.0),
			},
		},
		{
			"empty symbol",
			Snapshot{
				Holdings: []Holding{{Shares: d(10), TargetAllocationPct: d(100)}},
				Prices:   prices("AAPL", 100.0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Analyze(tt.snap)
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestAnalyze_AllocationSumSlackAccepted(t *testing.T) {
	// 100 ± 0.01 must pass.
	snap := Snapshot{
		Holdings: []Holding{h("AAPL", 10, 50.005), h("MSFT", 10, 50.004)},
		Prices:   prices("AAPL", 100.0, "MSFT", 100.0),
	}
	if _, _, err := Analyze(snap); err != nil {
		t.Fatalf("sum within slack should be accepted, got %v", err)
	}
}
