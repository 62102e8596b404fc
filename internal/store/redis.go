package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the rebalancing hot path (portfolio and holdings reads). Writes
// go to the primary store and invalidate the cache; reads check Redis first
// then fall back to the primary. Watchlist traffic is passed through.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	data, err := s.rdb.Get(ctx, portfolioKey(id)).Bytes()
	if err == nil {
		var p model.Portfolio
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cachePortfolio(ctx, p)
	return p, nil
}

func (s *CachedStore) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	data, err := s.rdb.Get(ctx, holdingsKey(portfolioID)).Bytes()
	if err == nil {
		var holdings []model.Holding
		if json.Unmarshal(data, &holdings) == nil {
			return holdings, nil
		}
	}

	holdings, err := s.primary.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(holdings); err == nil {
		s.rdb.Set(ctx, holdingsKey(portfolioID), data, s.ttl)
	}
	return holdings, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	if err := s.primary.CreatePortfolio(ctx, p); err != nil {
		return err
	}
	s.cachePortfolio(ctx, p)
	return nil
}

func (s *CachedStore) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	if err := s.primary.UpdatePortfolio(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, portfolioKey(p.ID))
	return nil
}

func (s *CachedStore) DeletePortfolio(ctx context.Context, id string) error {
	if err := s.primary.DeletePortfolio(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, portfolioKey(id), holdingsKey(id))
	return nil
}

func (s *CachedStore) AddHolding(ctx context.Context, h *model.Holding) error {
	if err := s.primary.AddHolding(ctx, h); err != nil {
		return err
	}
	s.rdb.Del(ctx, holdingsKey(h.PortfolioID))
	return nil
}

func (s *CachedStore) UpdateHolding(ctx context.Context, h *model.Holding) error {
	if err := s.primary.UpdateHolding(ctx, h); err != nil {
		return err
	}
	s.rdb.Del(ctx, holdingsKey(h.PortfolioID))
	return nil
}

func (s *CachedStore) DeleteHolding(ctx context.Context, portfolioID, holdingID string) error {
	if err := s.primary.DeleteHolding(ctx, portfolioID, holdingID); err != nil {
		return err
	}
	s.rdb.Del(ctx, holdingsKey(portfolioID))
	return nil
}

func (s *CachedStore) ReplaceHoldings(ctx context.Context, portfolioID string, holdings []model.Holding) error {
	if err := s.primary.ReplaceHoldings(ctx, portfolioID, holdings); err != nil {
		return err
	}
	s.rdb.Del(ctx, holdingsKey(portfolioID))
	return nil
}

func (s *CachedStore) UpdateHoldingPrices(ctx context.Context, portfolioID string,
	prices map[string]decimal.Decimal, at time.Time) error {

	if err := s.primary.UpdateHoldingPrices(ctx, portfolioID, prices, at); err != nil {
		return err
	}
	s.rdb.Del(ctx, holdingsKey(portfolioID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	return s.primary.ListPortfolios(ctx)
}

func (s *CachedStore) CreateWatchlist(ctx context.Context, w *model.Watchlist) error {
	return s.primary.CreateWatchlist(ctx, w)
}

func (s *CachedStore) GetWatchlist(ctx context.Context, id string) (*model.Watchlist, error) {
	return s.primary.GetWatchlist(ctx, id)
}

func (s *CachedStore) ListWatchlists(ctx context.Context) ([]model.Watchlist, error) {
	return s.primary.ListWatchlists(ctx)
}

func (s *CachedStore) DeleteWatchlist(ctx context.Context, id string) error {
	return s.primary.DeleteWatchlist(ctx, id)
}

func (s *CachedStore) AddWatchedItem(ctx context.Context, item *model.WatchedItem) error {
	return s.primary.AddWatchedItem(ctx, item)
}

func (s *CachedStore) GetWatchedItems(ctx context.Context, watchlistID string) ([]model.WatchedItem, error) {
	return s.primary.GetWatchedItems(ctx, watchlistID)
}

func (s *CachedStore) UpdateWatchedItem(ctx context.Context, item *model.WatchedItem) error {
	return s.primary.UpdateWatchedItem(ctx, item)
}

func (s *CachedStore) DeleteWatchedItem(ctx context.Context, watchlistID, itemID string) error {
	return s.primary.DeleteWatchedItem(ctx, watchlistID, itemID)
}

// --- Cache helpers ---

func (s *CachedStore) cachePortfolio(ctx context.Context, p *model.Portfolio) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, portfolioKey(p.ID), data, s.ttl)
	}
}

func portfolioKey(id string) string { return fmt.Sprintf("portfolio:%s", id) }
func holdingsKey(id string) string  { return fmt.Sprintf("holdings:%s", id) }
