package watchlist_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/prices"
	"github.com/foliotrack/portfolio-engine/internal/store"
	"github.com/foliotrack/portfolio-engine/internal/watchlist"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type fakeProvider struct {
	quotes map[string]decimal.Decimal
}

func (f *fakeProvider) Quote(_ context.Context, symbol string) (model.Quote, error) {
	price, ok := f.quotes[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", prices.ErrQuoteUnavailable, symbol)
	}
	return model.Quote{Symbol: symbol, Price: price, FetchedAt: time.Now().UTC()}, nil
}

// fakeNews returns one canned article per symbol.
type fakeNews struct{}

func (fakeNews) TickerNews(_ context.Context, symbol string) ([]model.NewsArticle, error) {
	return []model.NewsArticle{{
		Title:       symbol + " gains on earnings",
		Publisher:   "Wire",
		URL:         "https://example.com/" + symbol,
		PublishedAt: time.Now().UTC(),
	}}, nil
}

func newTestEnv(t *testing.T, quotes map[string]decimal.Decimal, src watchlist.NewsSource) (*store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	svc := watchlist.NewService(ms, &fakeProvider{quotes: quotes}, src, nil)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		svc.Routes(r)
	})
	return ms, r
}

func seedWatchlist(t *testing.T, ms *store.MemoryStore, name string, symbols ...string) *model.Watchlist {
	t.Helper()
	now := time.Now().UTC()
	wl := &model.Watchlist{ID: "test-" + name, Name: name, CreatedDate: now, ModifiedDate: now}
	if err := ms.CreateWatchlist(context.Background(), wl); err != nil {
		t.Fatalf("failed to seed watchlist: %v", err)
	}
	for i, sym := range symbols {
		item := &model.WatchedItem{
			ID:          fmt.Sprintf("%s-i%d", wl.ID, i),
			WatchlistID: wl.ID,
			Symbol:      sym,
			OrderIndex:  i,
			AddedDate:   now,
		}
		if err := ms.AddWatchedItem(context.Background(), item); err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
	}
	return wl
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateWatchlist(t *testing.T) {
	_, router := newTestEnv(t, nil, nil)

	w := doJSON(t, router, "POST", "/api/v1/watchlists", watchlist.WatchlistRequest{Name: "Tech"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "POST", "/api/v1/watchlists", watchlist.WatchlistRequest{Name: "Tech"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate name, got %d", w.Code)
	}
}

func TestAddItem_AppendsAtEnd(t *testing.T) {
	ms, router := newTestEnv(t, nil, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/items", watchlist.ItemRequest{
		Symbol: "msft", Notes: "cloud play",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var item model.WatchedItem
	json.Unmarshal(w.Body.Bytes(), &item)
	if item.Symbol != "MSFT" || item.OrderIndex != 1 {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestAddItem_DuplicateSymbol(t *testing.T) {
	ms, router := newTestEnv(t, nil, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/items", watchlist.ItemRequest{Symbol: "AAPL"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestUpdateItem_Notes(t *testing.T) {
	ms, router := newTestEnv(t, nil, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL")

	w := doJSON(t, router, "PUT", "/api/v1/watchlists/"+wl.ID+"/items/"+wl.ID+"-i0", watchlist.ItemRequest{
		Notes: "watch for split",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	items, _ := ms.GetWatchedItems(context.Background(), wl.ID)
	if items[0].Notes != "watch for split" {
		t.Errorf("notes not persisted: %+v", items[0])
	}
}

func TestReorder(t *testing.T) {
	ms, router := newTestEnv(t, nil, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL", "MSFT", "GOOG")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/reorder", watchlist.ReorderRequest{
		ItemIDs: []string{wl.ID + "-i2", wl.ID + "-i0", wl.ID + "-i1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	items, _ := ms.GetWatchedItems(context.Background(), wl.ID)
	if items[0].Symbol != "GOOG" || items[1].Symbol != "AAPL" || items[2].Symbol != "MSFT" {
		t.Errorf("unexpected order: %s %s %s", items[0].Symbol, items[1].Symbol, items[2].Symbol)
	}
}

func TestReorder_RejectsPartialList(t *testing.T) {
	ms, router := newTestEnv(t, nil, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL", "MSFT")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/reorder", watchlist.ReorderRequest{
		ItemIDs: []string{wl.ID + "-i0"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRefresh_UpdatesPricesAndNews(t *testing.T) {
	ms, router := newTestEnv(t, map[string]decimal.Decimal{
		"AAPL": d(185), "MSFT": d(410),
	}, fakeNews{})
	wl := seedWatchlist(t, ms, "Tech", "AAPL", "MSFT")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	items, _ := ms.GetWatchedItems(context.Background(), wl.ID)
	for _, it := range items {
		if !it.LastPrice.IsPositive() {
			t.Errorf("price not updated for %s", it.Symbol)
		}
		if len(it.News) != 1 {
			t.Errorf("news not attached for %s", it.Symbol)
		}
		if it.LastNewsUpdate.IsZero() {
			t.Errorf("news timestamp not set for %s", it.Symbol)
		}
	}
}

func TestRefresh_NoNewsSourceStillRefreshesPrices(t *testing.T) {
	ms, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(185)}, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	items, _ := ms.GetWatchedItems(context.Background(), wl.ID)
	if !items[0].LastPrice.Equal(d(185)) {
		t.Errorf("expected price 185, got %s", items[0].LastPrice)
	}
	if len(items[0].News) != 0 {
		t.Errorf("no news source configured, got %d articles", len(items[0].News))
	}
}

func TestRefresh_QuoteUnavailable(t *testing.T) {
	ms, router := newTestEnv(t, map[string]decimal.Decimal{}, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL")

	w := doJSON(t, router, "POST", "/api/v1/watchlists/"+wl.ID+"/refresh", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestDeleteWatchlist_CascadesItems(t *testing.T) {
	ms, router := newTestEnv(t, nil, nil)
	wl := seedWatchlist(t, ms, "Tech", "AAPL")

	w := doJSON(t, router, "DELETE", "/api/v1/watchlists/"+wl.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	if _, err := ms.GetWatchlist(context.Background(), wl.ID); err == nil {
		t.Fatal("watchlist still present after delete")
	}
}
