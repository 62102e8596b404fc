// Package watchlist provides HTTP handlers for tracking symbols outside
// a portfolio: ad-hoc lists with notes, ordered display, cached prices
// and recent news.
package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/news"
	"github.com/foliotrack/portfolio-engine/internal/prices"
	"github.com/foliotrack/portfolio-engine/internal/store"
	"github.com/foliotrack/portfolio-engine/internal/stream"
)

// NewsSource fetches recent articles for a symbol.
type NewsSource interface {
	TickerNews(ctx context.Context, symbol string) ([]model.NewsArticle, error)
}

// Service handles watchlist operations.
type Service struct {
	store    store.Store
	provider prices.Provider
	news     NewsSource // nil disables news refresh
	hub      *stream.Hub
}

// NewService creates a watchlist service. news and hub may be nil.
func NewService(st store.Store, provider prices.Provider, src NewsSource, hub *stream.Hub) *Service {
	return &Service{store: st, provider: provider, news: src, hub: hub}
}

// Routes mounts the watchlist endpoints on r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/watchlists", s.ListWatchlists)
	r.Post("/watchlists", s.CreateWatchlist)
	r.Route("/watchlists/{watchlistID}", func(r chi.Router) {
		r.Get("/", s.GetWatchlist)
		r.Delete("/", s.DeleteWatchlist)
		r.Post("/items", s.AddItem)
		r.Put("/items/{itemID}", s.UpdateItem)
		r.Delete("/items/{itemID}", s.DeleteItem)
		r.Post("/reorder", s.Reorder)
		r.Post("/refresh", s.Refresh)
	})
}

// --- Request/Response types ---

// WatchlistRequest is the JSON body for watchlist creation.
type WatchlistRequest struct {
	Name string `json:"name"`
}

// ItemRequest is the JSON body for adding or updating a watched item.
type ItemRequest struct {
	Symbol string `json:"symbol"`
	Notes  string `json:"notes"`
}

// ReorderRequest is the JSON body for POST .../reorder: the full list of
// item IDs in the desired display order.
type ReorderRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// WatchlistDetail is the GET response: the watchlist with its items.
type WatchlistDetail struct {
	model.Watchlist
	Items []model.WatchedItem `json:"items"`
}

// --- HTTP Handlers ---

// CreateWatchlist handles POST /api/v1/watchlists
func (s *Service) CreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	wl := &model.Watchlist{
		ID:           uuid.New().String(),
		Name:         req.Name,
		CreatedDate:  now,
		ModifiedDate: now,
	}
	if err := s.store.CreateWatchlist(r.Context(), wl); err != nil {
		writeStoreError(w, err, "watchlist")
		return
	}

	slog.Info("watchlist created", "id", wl.ID, "name", wl.Name)
	writeJSON(w, http.StatusCreated, wl)
}

// ListWatchlists handles GET /api/v1/watchlists
func (s *Service) ListWatchlists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.ListWatchlists(r.Context())
	if err != nil {
		writeError(w, "failed to list watchlists", http.StatusInternalServerError)
		return
	}
	if lists == nil {
		lists = []model.Watchlist{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// GetWatchlist handles GET /api/v1/watchlists/{watchlistID}
func (s *Service) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "watchlistID")
	ctx := r.Context()

	wl, err := s.store.GetWatchlist(ctx, id)
	if err != nil {
		writeStoreError(w, err, "watchlist")
		return
	}
	items, err := s.store.GetWatchedItems(ctx, id)
	if err != nil {
		writeError(w, "failed to load items", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []model.WatchedItem{}
	}

	writeJSON(w, http.StatusOK, WatchlistDetail{Watchlist: *wl, Items: items})
}

// DeleteWatchlist handles DELETE /api/v1/watchlists/{watchlistID}
func (s *Service) DeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "watchlistID")

	if err := s.store.DeleteWatchlist(r.Context(), id); err != nil {
		writeStoreError(w, err, "watchlist")
		return
	}
	slog.Info("watchlist deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/watchlists/{watchlistID}/items
// New items append at the end of the display order.
func (s *Service) AddItem(w http.ResponseWriter, r *http.Request) {
	watchlistID := chi.URLParam(r, "watchlistID")

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := prices.ValidateSymbol(symbol); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := s.store.GetWatchlist(ctx, watchlistID); err != nil {
		writeStoreError(w, err, "watchlist")
		return
	}
	existing, err := s.store.GetWatchedItems(ctx, watchlistID)
	if err != nil {
		writeError(w, "failed to load items", http.StatusInternalServerError)
		return
	}

	item := &model.WatchedItem{
		ID:          uuid.New().String(),
		WatchlistID: watchlistID,
		Symbol:      symbol,
		Notes:       req.Notes,
		OrderIndex:  len(existing),
		AddedDate:   time.Now().UTC(),
	}
	if err := s.store.AddWatchedItem(ctx, item); err != nil {
		writeStoreError(w, err, "item")
		return
	}

	slog.Info("symbol watched", "watchlist", watchlistID, "symbol", symbol)
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/watchlists/{watchlistID}/items/{itemID}
// Only notes are updatable; use reorder for display order.
func (s *Service) UpdateItem(w http.ResponseWriter, r *http.Request) {
	watchlistID := chi.URLParam(r, "watchlistID")
	itemID := chi.URLParam(r, "itemID")

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	item, err := s.findItem(ctx, watchlistID, itemID)
	if err != nil {
		writeStoreError(w, err, "item")
		return
	}

	item.Notes = req.Notes
	if err := s.store.UpdateWatchedItem(ctx, item); err != nil {
		writeStoreError(w, err, "item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/watchlists/{watchlistID}/items/{itemID}
func (s *Service) DeleteItem(w http.ResponseWriter, r *http.Request) {
	watchlistID := chi.URLParam(r, "watchlistID")
	itemID := chi.URLParam(r, "itemID")

	if err := s.store.DeleteWatchedItem(r.Context(), watchlistID, itemID); err != nil {
		writeStoreError(w, err, "item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles POST /api/v1/watchlists/{watchlistID}/reorder
// The body must list every item ID exactly once.
func (s *Service) Reorder(w http.ResponseWriter, r *http.Request) {
	watchlistID := chi.URLParam(r, "watchlistID")

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	items, err := s.store.GetWatchedItems(ctx, watchlistID)
	if err != nil {
		writeError(w, "failed to load items", http.StatusInternalServerError)
		return
	}
	if len(req.ItemIDs) != len(items) {
		writeError(w, "item_ids must list every item exactly once", http.StatusBadRequest)
		return
	}

	byID := make(map[string]*model.WatchedItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for idx, id := range req.ItemIDs {
		item, ok := byID[id]
		if !ok {
			writeError(w, "unknown item id: "+id, http.StatusBadRequest)
			return
		}
		item.OrderIndex = idx
	}
	for i := range items {
		if err := s.store.UpdateWatchedItem(ctx, &items[i]); err != nil {
			writeStoreError(w, err, "item")
			return
		}
	}

	updated, err := s.store.GetWatchedItems(ctx, watchlistID)
	if err != nil {
		writeError(w, "failed to load items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// refreshConcurrency bounds parallel news fetches during a refresh.
const refreshConcurrency = 4

// Refresh handles POST /api/v1/watchlists/{watchlistID}/refresh
// Fetches current prices for every item and, when a news source is
// configured, recent articles. A missing quote fails the request; a news
// failure only logs, the stale articles are kept.
func (s *Service) Refresh(w http.ResponseWriter, r *http.Request) {
	watchlistID := chi.URLParam(r, "watchlistID")
	ctx := r.Context()

	if _, err := s.store.GetWatchlist(ctx, watchlistID); err != nil {
		writeStoreError(w, err, "watchlist")
		return
	}
	items, err := s.store.GetWatchedItems(ctx, watchlistID)
	if err != nil {
		writeError(w, "failed to load items", http.StatusInternalServerError)
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusOK, []model.WatchedItem{})
		return
	}

	symbols := make([]string, 0, len(items))
	for _, it := range items {
		symbols = append(symbols, it.Symbol)
	}
	priceMap, err := prices.FetchAll(ctx, s.provider, symbols)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	now := time.Now().UTC()
	articles := make([][]model.NewsArticle, len(items))
	if s.news != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(refreshConcurrency)
		for i := range items {
			i := i
			g.Go(func() error {
				got, err := s.news.TickerNews(gctx, items[i].Symbol)
				if err != nil {
					if !errors.Is(err, news.ErrNotConfigured) {
						slog.Warn("news refresh failed", "symbol", items[i].Symbol, "err", err)
					}
					return nil // keep stale news
				}
				articles[i] = got
				return nil
			})
		}
		g.Wait()
	}

	for i := range items {
		items[i].LastPrice = priceMap[items[i].Symbol]
		if articles[i] != nil {
			items[i].News = articles[i]
			items[i].LastNewsUpdate = now
		}
		if err := s.store.UpdateWatchedItem(ctx, &items[i]); err != nil {
			writeStoreError(w, err, "item")
			return
		}
	}

	slog.Info("watchlist refreshed", "watchlist", watchlistID, "items", len(items))
	s.hub.Broadcast(stream.Event{
		Type:        stream.EventPricesRefreshed,
		WatchlistID: watchlistID,
		Prices:      stringPrices(priceMap),
	})

	writeJSON(w, http.StatusOK, items)
}

// findItem loads one item of a watchlist.
func (s *Service) findItem(ctx context.Context, watchlistID, itemID string) (*model.WatchedItem, error) {
	items, err := s.store.GetWatchedItems(ctx, watchlistID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return &items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, store.ErrConflict):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, "failed to access "+what, http.StatusInternalServerError)
	}
}

func stringPrices(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for sym, p := range m {
		out[sym] = p.String()
	}
	return out
}
