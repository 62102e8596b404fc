package prices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

// YahooProvider fetches live quotes from Yahoo Finance.
type YahooProvider struct{}

// NewYahooProvider creates a Yahoo Finance quote provider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{}
}

// Quote fetches the current regular-market price for one symbol. The
// underlying client is not context-aware; ctx is still honored between
// validation and the network call so cancelled batches stop early.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(symbol); err != nil {
		return model.Quote{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}

	return model.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(q.RegularMarketPrice),
		Currency:  q.CurrencyID,
		FetchedAt: time.Now().UTC(),
	}, nil
}
