// Package store defines the persistence interface for the portfolio engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned on uniqueness violations (duplicate portfolio
	// name, duplicate symbol within a portfolio).
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Portfolio operations ---

	// CreatePortfolio persists a new portfolio. Names are unique.
	CreatePortfolio(ctx context.Context, p *model.Portfolio) error

	// GetPortfolio retrieves a portfolio by its ID.
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)

	// ListPortfolios returns all portfolios ordered by name.
	ListPortfolios(ctx context.Context) ([]model.Portfolio, error)

	// UpdatePortfolio renames a portfolio and bumps its modified date.
	UpdatePortfolio(ctx context.Context, p *model.Portfolio) error

	// DeletePortfolio removes a portfolio and all of its holdings.
	DeletePortfolio(ctx context.Context, id string) error

	// --- Holding operations ---

	// AddHolding persists a new holding. A portfolio holds at most one
	// position per symbol.
	AddHolding(ctx context.Context, h *model.Holding) error

	// GetHoldings returns all holdings of a portfolio ordered by symbol.
	GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error)

	// UpdateHolding updates shares and target allocation of a holding.
	UpdateHolding(ctx context.Context, h *model.Holding) error

	// DeleteHolding removes a holding by its ID.
	DeleteHolding(ctx context.Context, portfolioID, holdingID string) error

	// ReplaceHoldings atomically swaps a portfolio's holdings, used by
	// CSV import.
	ReplaceHoldings(ctx context.Context, portfolioID string, holdings []model.Holding) error

	// UpdateHoldingPrices records freshly fetched prices on a portfolio's
	// holdings. Symbols not held are ignored.
	UpdateHoldingPrices(ctx context.Context, portfolioID string,
		prices map[string]decimal.Decimal, at time.Time) error

	// --- Watchlist operations ---

	// CreateWatchlist persists a new watchlist. Names are unique.
	CreateWatchlist(ctx context.Context, w *model.Watchlist) error

	// GetWatchlist retrieves a watchlist by its ID.
	GetWatchlist(ctx context.Context, id string) (*model.Watchlist, error)

	// ListWatchlists returns all watchlists ordered by name.
	ListWatchlists(ctx context.Context) ([]model.Watchlist, error)

	// DeleteWatchlist removes a watchlist and its items.
	DeleteWatchlist(ctx context.Context, id string) error

	// AddWatchedItem persists a tracked symbol on a watchlist.
	AddWatchedItem(ctx context.Context, item *model.WatchedItem) error

	// GetWatchedItems returns a watchlist's items ordered by OrderIndex.
	GetWatchedItems(ctx context.Context, watchlistID string) ([]model.WatchedItem, error)

	// UpdateWatchedItem updates notes, order, price, and cached news.
	UpdateWatchedItem(ctx context.Context, item *model.WatchedItem) error

	// DeleteWatchedItem removes a tracked symbol from a watchlist.
	DeleteWatchedItem(ctx context.Context, watchlistID, itemID string) error
}
