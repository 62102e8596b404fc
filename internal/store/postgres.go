package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

func mapError(err error, what, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s %s", ErrConflict, what, id)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

// --- Portfolios ---

func (s *PostgresStore) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portfolios (id, name, created_date, modified_date)
		 VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.CreatedDate, p.ModifiedDate,
	)
	return mapError(err, "portfolio", p.Name)
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var p model.Portfolio
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_date, modified_date
		 FROM portfolios WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CreatedDate, &p.ModifiedDate)
	if err != nil {
		return nil, mapError(err, "portfolio", id)
	}
	return &p, nil
}

func (s *PostgresStore) ListPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_date, modified_date
		 FROM portfolios ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []model.Portfolio
	for rows.Next() {
		var p model.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedDate, &p.ModifiedDate); err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

func (s *PostgresStore) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE portfolios SET name = $2, modified_date = $3 WHERE id = $1`,
		p.ID, p.Name, p.ModifiedDate,
	)
	if err != nil {
		return mapError(err, "portfolio", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, p.ID)
	}
	return nil
}

func (s *PostgresStore) DeletePortfolio(ctx context.Context, id string) error {
	// Holdings cascade via FK.
	tag, err := s.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "portfolio", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: portfolio %s", ErrNotFound, id)
	}
	return nil
}

// --- Holdings ---

func (s *PostgresStore) AddHolding(ctx context.Context, h *model.Holding) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO holdings (id, portfolio_id, symbol, shares, target_allocation_pct, last_price, price_updated_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)`,
		h.ID, h.PortfolioID, h.Symbol,
		h.Shares.String(), h.TargetAllocationPct.String(), h.LastPrice.String(),
		h.PriceUpdatedAt,
	)
	return mapError(err, "holding", h.Symbol)
}

func (s *PostgresStore) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	// Existence check first so a missing portfolio is NotFound, not empty.
	if _, err := s.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, portfolio_id, symbol,
		        shares::TEXT, target_allocation_pct::TEXT, last_price::TEXT,
		        price_updated_at
		 FROM holdings WHERE portfolio_id = $1 ORDER BY symbol`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var shares, target, price string
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Symbol,
			&shares, &target, &price, &h.PriceUpdatedAt); err != nil {
			return nil, err
		}
		h.Shares, _ = decimal.NewFromString(shares)
		h.TargetAllocationPct, _ = decimal.NewFromString(target)
		h.LastPrice, _ = decimal.NewFromString(price)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *PostgresStore) UpdateHolding(ctx context.Context, h *model.Holding) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE holdings
		 SET shares = $2::NUMERIC, target_allocation_pct = $3::NUMERIC
		 WHERE id = $1`,
		h.ID, h.Shares.String(), h.TargetAllocationPct.String(),
	)
	if err != nil {
		return mapError(err, "holding", h.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: holding %s", ErrNotFound, h.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteHolding(ctx context.Context, portfolioID, holdingID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM holdings WHERE id = $1 AND portfolio_id = $2`,
		holdingID, portfolioID)
	if err != nil {
		return mapError(err, "holding", holdingID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: holding %s", ErrNotFound, holdingID)
	}
	return nil
}

func (s *PostgresStore) ReplaceHoldings(ctx context.Context, portfolioID string, holdings []model.Holding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM holdings WHERE portfolio_id = $1`, portfolioID); err != nil {
		return err
	}
	for _, h := range holdings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO holdings (id, portfolio_id, symbol, shares, target_allocation_pct, last_price, price_updated_at)
			 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)`,
			h.ID, portfolioID, h.Symbol,
			h.Shares.String(), h.TargetAllocationPct.String(), h.LastPrice.String(),
			h.PriceUpdatedAt,
		); err != nil {
			return mapError(err, "holding", h.Symbol)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) UpdateHoldingPrices(ctx context.Context, portfolioID string,
	prices map[string]decimal.Decimal, at time.Time) error {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for symbol, price := range prices {
		if _, err := tx.Exec(ctx,
			`UPDATE holdings SET last_price = $3::NUMERIC, price_updated_at = $4
			 WHERE portfolio_id = $1 AND symbol = $2`,
			portfolioID, symbol, price.String(), at,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// --- Watchlists ---

func (s *PostgresStore) CreateWatchlist(ctx context.Context, w *model.Watchlist) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watchlists (id, name, created_date, modified_date)
		 VALUES ($1, $2, $3, $4)`,
		w.ID, w.Name, w.CreatedDate, w.ModifiedDate,
	)
	return mapError(err, "watchlist", w.Name)
}

func (s *PostgresStore) GetWatchlist(ctx context.Context, id string) (*model.Watchlist, error) {
	var w model.Watchlist
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_date, modified_date
		 FROM watchlists WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &w.CreatedDate, &w.ModifiedDate)
	if err != nil {
		return nil, mapError(err, "watchlist", id)
	}
	return &w, nil
}

func (s *PostgresStore) ListWatchlists(ctx context.Context) ([]model.Watchlist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_date, modified_date
		 FROM watchlists ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []model.Watchlist
	for rows.Next() {
		var w model.Watchlist
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedDate, &w.ModifiedDate); err != nil {
			return nil, err
		}
		lists = append(lists, w)
	}
	return lists, rows.Err()
}

func (s *PostgresStore) DeleteWatchlist(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM watchlists WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "watchlist", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: watchlist %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) AddWatchedItem(ctx context.Context, item *model.WatchedItem) error {
	news, err := json.Marshal(item.News)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO watched_items (id, watchlist_id, symbol, notes, last_price, order_index, added_date, news, last_news_update)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8, $9)`,
		item.ID, item.WatchlistID, item.Symbol, item.Notes,
		item.LastPrice.String(), item.OrderIndex, item.AddedDate,
		news, item.LastNewsUpdate,
	)
	return mapError(err, "watched item", item.Symbol)
}

func (s *PostgresStore) GetWatchedItems(ctx context.Context, watchlistID string) ([]model.WatchedItem, error) {
	if _, err := s.GetWatchlist(ctx, watchlistID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, watchlist_id, symbol, notes,
		        last_price::TEXT, order_index, added_date, news, last_news_update
		 FROM watched_items WHERE watchlist_id = $1 ORDER BY order_index`, watchlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.WatchedItem
	for rows.Next() {
		var item model.WatchedItem
		var price string
		var news []byte
		if err := rows.Scan(&item.ID, &item.WatchlistID, &item.Symbol, &item.Notes,
			&price, &item.OrderIndex, &item.AddedDate, &news, &item.LastNewsUpdate); err != nil {
			return nil, err
		}
		item.LastPrice, _ = decimal.NewFromString(price)
		if len(news) > 0 {
			_ = json.Unmarshal(news, &item.News)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateWatchedItem(ctx context.Context, item *model.WatchedItem) error {
	news, err := json.Marshal(item.News)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE watched_items
		 SET notes = $2, last_price = $3::NUMERIC, order_index = $4,
		     news = $5, last_news_update = $6
		 WHERE id = $1`,
		item.ID, item.Notes, item.LastPrice.String(), item.OrderIndex,
		news, item.LastNewsUpdate,
	)
	if err != nil {
		return mapError(err, "watched item", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: watched item %s", ErrNotFound, item.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteWatchedItem(ctx context.Context, watchlistID, itemID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM watched_items WHERE id = $1 AND watchlist_id = $2`,
		itemID, watchlistID)
	if err != nil {
		return mapError(err, "watched item", itemID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: watched item %s", ErrNotFound, itemID)
	}
	return nil
}
