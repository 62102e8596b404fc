package prices

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

// fakeProvider serves canned quotes and counts calls.
type fakeProvider struct {
	quotes map[string]decimal.Decimal
	calls  atomic.Int64
}

func (f *fakeProvider) Quote(_ context.Context, symbol string) (model.Quote, error) {
	f.calls.Add(1)
	price, ok := f.quotes[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}
	return model.Quote{Symbol: symbol, Price: price, FetchedAt: time.Now().UTC()}, nil
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "BRK.B", "BF-B", "VTI", "A"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("%s should be valid: %v", s, err)
		}
	}

	invalid := []string{"", "aapl", "TOOLONGSYMBOL", "BAD SYM", ".AAPL"}
	for _, s := range invalid {
		if err := ValidateSymbol(s); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("%q should be invalid, got %v", s, err)
		}
	}
}

func TestCached_ServesFromCacheWithinTTL(t *testing.T) {
	fake := &fakeProvider{quotes: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(185)}}
	cached := NewCached(fake, time.Minute)

	for i := 0; i < 3; i++ {
		q, err := cached.Quote(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !q.Price.Equal(decimal.NewFromInt(185)) {
			t.Errorf("expected price 185, got %s", q.Price)
		}
	}

	if got := fake.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestCached_NormalizesSymbolKeys(t *testing.T) {
	fake := &fakeProvider{quotes: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(185)}}
	cached := NewCached(fake, time.Minute)

	// Mixed casings and whitespace must all land on one cache entry.
	for _, s := range []string{"AAPL", "aapl", " Aapl "} {
		if _, err := cached.Quote(context.Background(), s); err != nil {
			t.Fatalf("unexpected error for %q: %v", s, err)
		}
	}
	if got := fake.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call across symbol spellings, got %d", got)
	}

	cached.Invalidate("aapl")
	_, _ = cached.Quote(context.Background(), "AAPL")
	if got := fake.calls.Load(); got != 2 {
		t.Errorf("expected refetch after lowercase invalidation, got %d calls", got)
	}
}

func TestCached_ExpiredEntryRefetches(t *testing.T) {
	fake := &fakeProvider{quotes: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(185)}}
	cached := NewCached(fake, -time.Second) // everything already expired

	_, _ = cached.Quote(context.Background(), "AAPL")
	_, _ = cached.Quote(context.Background(), "AAPL")

	if got := fake.calls.Load(); got != 2 {
		t.Errorf("expected 2 upstream calls with expired TTL, got %d", got)
	}
}

func TestCached_Invalidate(t *testing.T) {
	fake := &fakeProvider{quotes: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(185)}}
	cached := NewCached(fake, time.Minute)

	_, _ = cached.Quote(context.Background(), "AAPL")
	cached.Invalidate("AAPL")
	_, _ = cached.Quote(context.Background(), "AAPL")

	if got := fake.calls.Load(); got != 2 {
		t.Errorf("expected refetch after invalidation, got %d calls", got)
	}
}

func TestFetchAll_ResolvesEverySymbol(t *testing.T) {
	fake := &fakeProvider{quotes: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(185),
		"MSFT": decimal.NewFromInt(410),
		"VTI":  decimal.NewFromInt(260),
	}}

	got, err := FetchAll(context.Background(), fake, []string{"AAPL", "MSFT", "VTI"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 prices, got %d", len(got))
	}
	if !got["MSFT"].Equal(decimal.NewFromInt(410)) {
		t.Errorf("expected MSFT 410, got %s", got["MSFT"])
	}
}

func TestFetchAll_FailsWholeBatchOnMissingSymbol(t *testing.T) {
	fake := &fakeProvider{quotes: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(185)}}

	_, err := FetchAll(context.Background(), fake, []string{"AAPL", "NOPE"})
	if !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}
