// Package model defines the core domain types shared across the portfolio
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a named collection of stock holdings with target allocations.
type Portfolio struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	CreatedDate  time.Time `json:"created_date" db:"created_date"`
	ModifiedDate time.Time `json:"modified_date" db:"modified_date"`
}

// Holding is a stock position within a portfolio. Shares may be fractional.
// TargetAllocationPct is expressed in percentage points (0–100).
type Holding struct {
	ID                  string          `json:"id" db:"id"`
	PortfolioID         string          `json:"portfolio_id" db:"portfolio_id"`
	Symbol              string          `json:"symbol" db:"symbol"`
	Shares              decimal.Decimal `json:"shares" db:"shares"`
	TargetAllocationPct decimal.Decimal `json:"target_allocation_pct" db:"target_allocation_pct"`
	LastPrice           decimal.Decimal `json:"last_price" db:"last_price"` // zero until first refresh
	PriceUpdatedAt      time.Time       `json:"price_updated_at" db:"price_updated_at"`
}

// CurrentValue returns shares × last price.
func (h Holding) CurrentValue() decimal.Decimal {
	return h.Shares.Mul(h.LastPrice)
}

// Watchlist is a named collection of tracked symbols.
type Watchlist struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	CreatedDate  time.Time `json:"created_date" db:"created_date"`
	ModifiedDate time.Time `json:"modified_date" db:"modified_date"`
}

// WatchedItem is a single tracked symbol within a watchlist.
type WatchedItem struct {
	ID             string          `json:"id" db:"id"`
	WatchlistID    string          `json:"watchlist_id" db:"watchlist_id"`
	Symbol         string          `json:"symbol" db:"symbol"`
	Notes          string          `json:"notes,omitempty" db:"notes"`
	LastPrice      decimal.Decimal `json:"last_price" db:"last_price"`
	OrderIndex     int             `json:"order_index" db:"order_index"`
	AddedDate      time.Time       `json:"added_date" db:"added_date"`
	News           []NewsArticle   `json:"news,omitempty" db:"news"`
	LastNewsUpdate time.Time       `json:"last_news_update" db:"last_news_update"`
}

// NewsArticle is a single news item attached to a watched symbol.
type NewsArticle struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary,omitempty"`
}

// Quote is a resolved market price for a symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	FetchedAt time.Time       `json:"fetched_at"`
}
