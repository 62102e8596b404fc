// Package prices resolves market prices for ticker symbols. The live
// provider uses Yahoo Finance; a TTL cache decorator and a bounded
// concurrent fetcher sit on top. The rebalancing engine never calls this
// package — callers resolve a full price map first and hand the engine an
// immutable snapshot.
package prices

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

var (
	// ErrQuoteUnavailable is returned when no usable quote exists for a
	// symbol. The wrapped message names the symbol.
	ErrQuoteUnavailable = errors.New("prices: quote unavailable")

	// ErrInvalidSymbol is returned for symbols that cannot be a ticker.
	ErrInvalidSymbol = errors.New("prices: invalid symbol")
)

// symbolRe matches normalized tickers: 1-10 alphanumerics, dot or dash
// allowed for share classes (BRK.B, BF-B).
var symbolRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// Provider resolves a single symbol to a quote.
type Provider interface {
	Quote(ctx context.Context, symbol string) (model.Quote, error)
}

// ValidateSymbol checks that a normalized (uppercase) symbol is plausible.
func ValidateSymbol(symbol string) error {
	if !symbolRe.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}
