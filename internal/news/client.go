// Package news fetches recent articles for watched symbols from the
// Finnhub company-news API.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/foliotrack/portfolio-engine/internal/model"
	"github.com/foliotrack/portfolio-engine/internal/prices"
)

var (
	ErrNotConfigured = errors.New("news: API key not configured")
	ErrUpstream      = errors.New("news: upstream request failed")
)

const (
	defaultBaseURL  = "https://finnhub.io/api/v1"
	defaultTimeout  = 30 * time.Second
	defaultLookback = 7 * 24 * time.Hour
	maxArticles     = 10
)

// Client wraps the Finnhub HTTP API.
type Client struct {
	rest   *resty.Client
	apiKey string
}

// NewClient builds a client. An empty apiKey is allowed; calls will
// return ErrNotConfigured so the watchlist service can degrade gracefully.
func NewClient(apiKey string) *Client {
	rest := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(defaultTimeout)
	return &Client{rest: rest, apiKey: apiKey}
}

type companyNews struct {
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// TickerNews returns up to maxArticles recent articles for symbol,
// newest first.
func (c *Client) TickerNews(ctx context.Context, symbol string) ([]model.NewsArticle, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if err := prices.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   now.Add(-defaultLookback).Format("2006-01-02"),
			"to":     now.Format("2006-01-02"),
			"token":  c.apiKey,
		}).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUpstream, symbol, resp.StatusCode())
	}

	var raw []companyNews
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, symbol, err)
	}

	articles := make([]model.NewsArticle, 0, len(raw))
	for _, n := range raw {
		if n.Headline == "" || n.URL == "" {
			continue
		}
		articles = append(articles, model.NewsArticle{
			Title:       n.Headline,
			Publisher:   n.Source,
			URL:         n.URL,
			PublishedAt: time.Unix(n.DateTime, 0).UTC(),
			Summary:     n.Summary,
		})
	}
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}
	return articles, nil
}
