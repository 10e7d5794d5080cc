// Package stockapi reads ticker details and the market snapshot from the
// external stock API. Responses can be cached briefly and requests are rate
// limited so a refresh of a full category cannot flood the upstream.
package stockapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"TradeInfo/internal/domain/models"
	drepo "TradeInfo/internal/domain/repository"
	"TradeInfo/internal/service/ratelimit"
	"TradeInfo/pkg/cache"
	apphttp "TradeInfo/pkg/http"
)

var (
	ErrNotFound    = errors.New("stockapi: ticker not found")
	ErrRateLimited = errors.New("stockapi: rate limited")
)

const limiterKey = "stock_api"

// Option configures Client.
type Option func(*Client)

// WithCache caches successful responses in c for ttl.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithRateLimit allows bursts of burst requests and perSec sustained.
func WithRateLimit(burst, perSec float64) Option {
	return func(cl *Client) {
		if burst > 0 && perSec > 0 {
			cl.limiter = ratelimit.New(burst, perSec)
		}
	}
}

// Client implements StockSource over HTTP.
type Client struct {
	http     *apphttp.Client
	cache    cache.Service
	cacheTTL time.Duration
	limiter  *ratelimit.Limiter
}

// New creates a client for the API at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http: apphttp.NewClient(apphttp.WithBaseURL(baseURL), apphttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetStock fetches /stocks/{code}.
func (c *Client) GetStock(ctx context.Context, code string) (*models.StockDetails, error) {
	var out models.StockDetails
	if err := c.get(ctx, "stocks/"+url.PathEscape(code), &out); err != nil {
		return nil, fmt.Errorf("get stock %s: %w", code, err)
	}
	return &out, nil
}

// GetMarket fetches /stocks/market.
func (c *Client) GetMarket(ctx context.Context) (*models.MarketIndices, error) {
	var out models.MarketIndices
	if err := c.get(ctx, "stocks/market", &out); err != nil {
		return nil, fmt.Errorf("get market: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	key := "stockapi:" + path
	if c.cache != nil {
		if err := c.fromCache(ctx, key, dest); err == nil {
			return nil
		}
	}
	if c.limiter != nil && !c.limiter.Allow(limiterKey) {
		return ErrRateLimited
	}

	err := c.http.SendAndParse(ctx, &apphttp.RequestOptions{Method: apphttp.MethodGet, URL: path}, dest)
	var se *apphttp.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if c.cache != nil && c.cacheTTL > 0 {
		// a failed cache write only costs a refetch
		_ = cache.SetJSON(ctx, c.cache, key, dest, c.cacheTTL)
	}
	return nil
}

func (c *Client) fromCache(ctx context.Context, key string, dest any) error {
	switch d := dest.(type) {
	case *models.StockDetails:
		v, err := cache.GetJSON[models.StockDetails](ctx, c.cache, key)
		if err != nil {
			return err
		}
		*d = v
	case *models.MarketIndices:
		v, err := cache.GetJSON[models.MarketIndices](ctx, c.cache, key)
		if err != nil {
			return err
		}
		*d = v
	default:
		return cache.ErrCacheMiss
	}
	return nil
}

var _ drepo.StockSource = (*Client)(nil)
