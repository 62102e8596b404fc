package prices

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// defaultFetchConcurrency bounds parallel quote requests per batch.
const defaultFetchConcurrency = 8

// FetchAll resolves every symbol concurrently and returns a complete price
// map. Any single failure fails the whole batch: a partial price map would
// let the caller run a rebalance on incomplete data.
func FetchAll(ctx context.Context, p Provider, symbols []string) (map[string]decimal.Decimal, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultFetchConcurrency)

	var mu sync.Mutex
	out := make(map[string]decimal.Decimal, len(symbols))

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			q, err := p.Quote(ctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			out[q.Symbol] = q.Price
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
