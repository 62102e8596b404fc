package prices

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/metrics"
)

// Cached wraps a Provider with an in-process read-through TTL cache.
// Quotes go stale quickly, so the TTL should stay in the low minutes.
type Cached struct {
	inner Provider
	ttl   time.Duration

	mu    sync.RWMutex
	bySym map[string]model.Quote
}

// NewCached creates a caching decorator around a provider.
func NewCached(inner Provider, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		ttl:   ttl,
		bySym: make(map[string]model.Quote),
	}
}

func (c *Cached) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	// Lookup and store keys must agree with the provider's normalization.
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.RLock()
	q, ok := c.bySym[symbol]
	c.mu.RUnlock()
	if ok && time.Since(q.FetchedAt) < c.ttl {
		metrics.PriceCacheHits.Inc()
		return q, nil
	}

	q, err := c.inner.Quote(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}
	metrics.PriceFetches.Inc()

	c.mu.Lock()
	c.bySym[symbol] = q
	c.mu.Unlock()
	return q, nil
}

// Invalidate drops a symbol from the cache, forcing a live fetch next time.
func (c *Cached) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.bySym, strings.ToUpper(strings.TrimSpace(symbol)))
	c.mu.Unlock()
}
