package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]*model.Portfolio
	holdings   map[string][]model.Holding // portfolioID → holdings
	watchlists map[string]*model.Watchlist
	items      map[string][]model.WatchedItem // watchlistID → items
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]*model.Portfolio),
		holdings:   make(map[string][]model.Holding),
		watchlists: make(map[string]*model.Watchlist),
		items:      make(map[string][]model.WatchedItem),
	}
}

// --- Portfolios ---

func (s *MemoryStore) CreatePortfolio(_ context.Context, p *model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.portfolios {
		if existing.Name == p.Name {
			return fmt.Errorf("%w: portfolio name %q", ErrConflict, p.Name)
		}
	}

	// Store a copy to avoid external mutation.
	cp := *p
	s.portfolios[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPortfolio(_ context.Context, id string) (*model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("%w: portfolio %s", ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPortfolios(_ context.Context) ([]model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdatePortfolio(_ context.Context, p *model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.portfolios[p.ID]
	if !ok {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, p.ID)
	}
	for id, other := range s.portfolios {
		if id != p.ID && other.Name == p.Name {
			return fmt.Errorf("%w: portfolio name %q", ErrConflict, p.Name)
		}
	}
	existing.Name = p.Name
	existing.ModifiedDate = p.ModifiedDate
	return nil
}

func (s *MemoryStore) DeletePortfolio(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[id]; !ok {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, id)
	}
	delete(s.portfolios, id)
	delete(s.holdings, id)
	return nil
}

// --- Holdings ---

func (s *MemoryStore) AddHolding(_ context.Context, h *model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[h.PortfolioID]; !ok {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, h.PortfolioID)
	}
	for _, existing := range s.holdings[h.PortfolioID] {
		if existing.Symbol == h.Symbol {
			return fmt.Errorf("%w: symbol %s already held", ErrConflict, h.Symbol)
		}
	}
	s.holdings[h.PortfolioID] = append(s.holdings[h.PortfolioID], *h)
	return nil
}

func (s *MemoryStore) GetHoldings(_ context.Context, portfolioID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.portfolios[portfolioID]; !ok {
		return nil, fmt.Errorf("%w: portfolio %s", ErrNotFound, portfolioID)
	}
	out := make([]model.Holding, len(s.holdings[portfolioID]))
	copy(out, s.holdings[portfolioID])
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *MemoryStore) UpdateHolding(_ context.Context, h *model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hs := s.holdings[h.PortfolioID]
	for i := range hs {
		if hs[i].ID == h.ID {
			hs[i].Shares = h.Shares
			hs[i].TargetAllocationPct = h.TargetAllocationPct
			return nil
		}
	}
	return fmt.Errorf("%w: holding %s", ErrNotFound, h.ID)
}

func (s *MemoryStore) DeleteHolding(_ context.Context, portfolioID, holdingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hs := s.holdings[portfolioID]
	for i := range hs {
		if hs[i].ID == holdingID {
			s.holdings[portfolioID] = append(hs[:i], hs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: holding %s", ErrNotFound, holdingID)
}

func (s *MemoryStore) ReplaceHoldings(_ context.Context, portfolioID string, holdings []model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[portfolioID]; !ok {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, portfolioID)
	}
	replacement := make([]model.Holding, len(holdings))
	copy(replacement, holdings)
	s.holdings[portfolioID] = replacement
	return nil
}

func (s *MemoryStore) UpdateHoldingPrices(_ context.Context, portfolioID string,
	prices map[string]decimal.Decimal, at time.Time) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[portfolioID]; !ok {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, portfolioID)
	}
	hs := s.holdings[portfolioID]
	for i := range hs {
		if price, ok := prices[hs[i].Symbol]; ok {
			hs[i].LastPrice = price
			hs[i].PriceUpdatedAt = at
		}
	}
	return nil
}

// --- Watchlists ---

func (s *MemoryStore) CreateWatchlist(_ context.Context, w *model.Watchlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.watchlists {
		if existing.Name == w.Name {
			return fmt.Errorf("%w: watchlist name %q", ErrConflict, w.Name)
		}
	}
	cp := *w
	s.watchlists[w.ID] = &cp
	return nil
}

func (s *MemoryStore) GetWatchlist(_ context.Context, id string) (*model.Watchlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.watchlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: watchlist %s", ErrNotFound, id)
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) ListWatchlists(_ context.Context) ([]model.Watchlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Watchlist, 0, len(s.watchlists))
	for _, w := range s.watchlists {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteWatchlist(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchlists[id]; !ok {
		return fmt.Errorf("%w: watchlist %s", ErrNotFound, id)
	}
	delete(s.watchlists, id)
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) AddWatchedItem(_ context.Context, item *model.WatchedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchlists[item.WatchlistID]; !ok {
		return fmt.Errorf("%w: watchlist %s", ErrNotFound, item.WatchlistID)
	}
	for _, existing := range s.items[item.WatchlistID] {
		if existing.Symbol == item.Symbol {
			return fmt.Errorf("%w: symbol %s already watched", ErrConflict, item.Symbol)
		}
	}
	s.items[item.WatchlistID] = append(s.items[item.WatchlistID], *item)
	return nil
}

func (s *MemoryStore) GetWatchedItems(_ context.Context, watchlistID string) ([]model.WatchedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.watchlists[watchlistID]; !ok {
		return nil, fmt.Errorf("%w: watchlist %s", ErrNotFound, watchlistID)
	}
	out := make([]model.WatchedItem, len(s.items[watchlistID]))
	copy(out, s.items[watchlistID])
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *MemoryStore) UpdateWatchedItem(_ context.Context, item *model.WatchedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[item.WatchlistID]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = *item
			return nil
		}
	}
	return fmt.Errorf("%w: watched item %s", ErrNotFound, item.ID)
}

func (s *MemoryStore) DeleteWatchedItem(_ context.Context, watchlistID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[watchlistID]
	for i := range items {
		if items[i].ID == itemID {
			s.items[watchlistID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: watched item %s", ErrNotFound, itemID)
}
