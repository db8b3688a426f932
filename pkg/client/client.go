// Package client provides the CMS HTTP API client with page caching,
// error classification, and request metrics.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/cache"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/stories"
)

// Prometheus metrics for CMS requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_requests_total",
		Help: "Total CMS requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyblok_request_duration_seconds",
		Help:    "CMS request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_errors_total",
		Help: "Total CMS errors by class",
	}, []string{"class"})
)

const (
	storiesEndpoint = "/cdn/stories"
	spaceEndpoint   = "/cdn/spaces/me"
)

// DefaultPerPage is the fixed page size used for collection fetches.
const DefaultPerPage = 25

// PageRequest identifies one page of one market's collection. Values
// are immutable once built.
type PageRequest struct {
	Market       string
	Page         int
	PerPage      int
	CacheVersion string
	FallbackLang string
}

// Page is one fetched page of the collection. Total carries the
// collection size reported by the transport metadata; 0 means the
// metadata was absent or unparsable.
type Page struct {
	Stories []stories.Story
	Total   int
}

// Config holds the client configuration. Components never read ambient
// process state; everything arrives through this value.
type Config struct {
	// Token is the CMS access token (required).
	Token string

	// BaseURL of the CMS API.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// PageCache is an optional Redis-backed cache for raw page bodies.
	// Nil disables caching.
	PageCache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		Token:     token,
		BaseURL:   "https://api.storyblok.com/v2",
		UserAgent: "storyblok-fast-client/1.0",
		Timeout:   30 * time.Second,
	}
}

// Client is the CMS API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new CMS client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig(cfg.Token).BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "cms-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// GetStoriesPage fetches one page of a market's story collection.
// A cached body for the same (market, page, cache-version) is served
// without touching the network; cache failures degrade to a direct
// request.
func (c *Client) GetStoriesPage(ctx context.Context, req PageRequest) (Page, error) {
	if req.PerPage <= 0 {
		req.PerPage = DefaultPerPage
	}

	if cached, ok := c.cachedPage(ctx, req); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("token", c.config.Token)
	query.Set("per_page", strconv.Itoa(req.PerPage))
	query.Set("language", req.Market)
	query.Set("cv", req.CacheVersion)
	if req.Page > 0 {
		query.Set("page", strconv.Itoa(req.Page))
	}
	if req.FallbackLang != "" {
		query.Set("fallback_lang", req.FallbackLang)
	}

	body, header, err := c.get(ctx, storiesEndpoint, query)
	if err != nil {
		return Page{}, err
	}

	var payload struct {
		Stories []stories.Story `json:"stories"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Page{}, fmt.Errorf("decode stories page: %w", err)
	}

	page := Page{
		Stories: payload.Stories,
		Total:   parseTotal(header),
	}

	c.storePage(ctx, req, body, page.Total)

	c.logger.Debug().
		Str("market", req.Market).
		Int("page", req.Page).
		Int("stories", len(page.Stories)).
		Int("total", page.Total).
		Msg("Fetched stories page")

	return page, nil
}

// SpaceVersion fetches the space metadata and returns its version,
// used as the cache-version token for a consistent paginated fetch.
func (c *Client) SpaceVersion(ctx context.Context) (int64, error) {
	query := url.Values{}
	query.Set("token", c.config.Token)

	body, _, err := c.get(ctx, spaceEndpoint, query)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Space struct {
			Version int64 `json:"version"`
		} `json:"space"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode space metadata: %w", err)
	}

	return payload.Space.Version, nil
}

// get performs one GET request and returns the response body and
// headers. HTTP errors become typed APIErrors.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, http.Header, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	reqURL := c.config.BaseURL + endpoint + "?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, nil, fmt.Errorf("http get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    resp.Status,
		}
		errorsTotal.WithLabelValues(string(apiErr.Class())).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class())).
			Msg("CMS request error")

		return nil, nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	return body, resp.Header, nil
}

// cachedPage serves a page from the page cache when possible.
func (c *Client) cachedPage(ctx context.Context, req PageRequest) (Page, bool) {
	if c.config.PageCache == nil {
		return Page{}, false
	}

	key := cache.Key{Market: req.Market, Page: req.Page, CacheVersion: req.CacheVersion}
	entry, err := c.config.PageCache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("market", req.Market).Int("page", req.Page).Msg("Page cache get failed")
		}
		return Page{}, false
	}

	var payload struct {
		Stories []stories.Story `json:"stories"`
	}
	if err := json.Unmarshal(entry.Data, &payload); err != nil {
		c.logger.Warn().Err(err).Str("market", req.Market).Int("page", req.Page).Msg("Invalid cached page body")
		return Page{}, false
	}

	c.logger.Debug().
		Str("market", req.Market).
		Int("page", req.Page).
		Dur("age", entry.Age()).
		Msg("Page cache hit")

	return Page{Stories: payload.Stories, Total: entry.Total}, true
}

// storePage writes a fetched page body to the page cache.
func (c *Client) storePage(ctx context.Context, req PageRequest, body []byte, total int) {
	if c.config.PageCache == nil {
		return
	}

	key := cache.Key{Market: req.Market, Page: req.Page, CacheVersion: req.CacheVersion}
	if err := c.config.PageCache.Set(ctx, key, body, total); err != nil {
		c.logger.Warn().Err(err).Str("market", req.Market).Int("page", req.Page).Msg("Page cache set failed")
	}
}

// parseTotal reads the string-encoded collection size from the
// response metadata. Absent or unparsable values yield 0, which
// callers treat as "single page".
func parseTotal(header http.Header) int {
	raw := header.Get("Total")
	if raw == "" {
		return 0
	}
	total, err := strconv.Atoi(raw)
	if err != nil || total < 0 {
		return 0
	}
	return total
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
