// Package fetcher retrieves a market's full story collection across
// all pages, with bounded parallelism and per-market retry.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/bulk"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/client"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/ratelimit"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/retry"
	"github.com/bernardodestefano/storyblok-fast-client/pkg/stories"
)

// Prometheus metrics for market fetches.
var (
	marketFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_market_fetches_total",
		Help: "Total market fetch attempts by outcome",
	}, []string{"outcome"})

	marketFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyblok_market_fetch_duration_seconds",
		Help:    "Duration of complete market fetches",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// ErrFetchFailed is returned when a market exhausts its fetch attempts.
var ErrFetchFailed = errors.New("market fetch failed")

// Config holds fetcher configuration.
type Config struct {
	// PerPage is the fixed collection page size.
	PerPage int

	// PageConcurrency bounds how many pages are in flight at once.
	PageConcurrency int

	// PageRetry is applied to every page fetch past the first.
	PageRetry retry.Config

	// MaxAttempts bounds whole-market fetch attempts.
	MaxAttempts int

	// Cooldown is the fixed pause after a too-many-requests response.
	Cooldown time.Duration

	// FallbackLang, when set, is passed through to every page request.
	FallbackLang string
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		PerPage:         client.DefaultPerPage,
		PageConcurrency: 20,
		PageRetry:       retry.DefaultConfig(),
		MaxAttempts:     5,
		Cooldown:        ratelimit.DefaultCooldown,
	}
}

// Result is the outcome of one market fetch. Complete is false when
// pages were dropped after exhausting their retries; the stories of
// dropped pages are simply missing.
type Result struct {
	Stories      []stories.Story
	Complete     bool
	FailedPages  int
	CacheVersion string
}

// Fetcher pulls full market collections through the CMS client.
type Fetcher struct {
	client *client.Client
	config Config
	gate   *ratelimit.Gate
	logger zerolog.Logger
}

// New creates a fetcher. Zero config fields fall back to defaults.
func New(c *client.Client, cfg Config) *Fetcher {
	d := DefaultConfig()
	if cfg.PerPage <= 0 {
		cfg.PerPage = d.PerPage
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = d.PageConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = d.MaxAttempts
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = d.Cooldown
	}

	return &Fetcher{
		client: c,
		config: cfg,
		gate:   ratelimit.NewGate(),
		logger: log.With().Str("component", "fetcher").Logger(),
	}
}

// FetchAll fetches every page of one market's collection under a fixed
// cache-version token. Page 1 determines the page count from the
// response's total metadata; the remaining pages run through the bulk
// scheduler. Page-1 stories come first; pages past the first land in
// settle order. A page that exhausts its retries is dropped and
// reflected in Result.FailedPages, never failing the fetch.
func (f *Fetcher) FetchAll(ctx context.Context, market, cacheVersion string) (Result, error) {
	start := time.Now()

	first, err := f.client.GetStoriesPage(ctx, f.pageRequest(market, 1, cacheVersion))
	if err != nil {
		return Result{}, fmt.Errorf("fetch first page of %s: %w", market, err)
	}

	totalPages := 1
	if first.Total > 0 {
		totalPages = (first.Total + f.config.PerPage - 1) / f.config.PerPage
	}

	result := Result{
		Stories:      first.Stories,
		Complete:     true,
		CacheVersion: cacheVersion,
	}

	if totalPages > 1 {
		ops := make([]bulk.Op[[]stories.Story], 0, totalPages-1)
		for page := 2; page <= totalPages; page++ {
			req := f.pageRequest(market, page, cacheVersion)
			ops = append(ops, func(ctx context.Context) ([]stories.Story, error) {
				p, err := f.client.GetStoriesPage(ctx, req)
				if err != nil {
					return nil, err
				}
				return p.Stories, nil
			})
		}

		pages := bulk.Run(ctx, ops, bulk.Config{
			BulkSize: f.config.PageConcurrency,
			Retry:    f.config.PageRetry,
		})
		for _, pageStories := range pages.Values {
			result.Stories = append(result.Stories, pageStories...)
		}
		result.Complete = pages.Complete()
		result.FailedPages = pages.Failed
	}

	marketFetchDuration.Observe(time.Since(start).Seconds())
	f.logger.Info().
		Str("market", market).
		Int("pages", totalPages).
		Int("failed_pages", result.FailedPages).
		Int("stories", len(result.Stories)).
		Dur("duration", time.Since(start)).
		Msg("Market fetch complete")

	return result, nil
}

// FetchMarketStories derives a cache-version token and retries the
// whole-market fetch up to MaxAttempts. A too-many-requests response
// trips the shared cooldown gate so the next attempt starts after the
// fixed pause; any other error is logged with market context and
// retried only by attempt count.
func (f *Fetcher) FetchMarketStories(ctx context.Context, market string) (Result, error) {
	cacheVersion := f.cacheVersion(ctx)

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		if err := f.gate.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("wait for rate limit cooldown: %w", err)
		}

		result, err := f.FetchAll(ctx, market, cacheVersion)
		if err == nil {
			marketFetchesTotal.WithLabelValues("success").Inc()
			if !result.Complete {
				f.logger.Warn().
					Str("market", market).
					Int("failed_pages", result.FailedPages).
					Msg("Market fetched with missing pages")
			}
			return result, nil
		}

		marketFetchesTotal.WithLabelValues("error").Inc()

		if errors.Is(err, client.ErrTooManyRequests) {
			f.gate.TripFor(f.config.Cooldown)
			f.logger.Warn().
				Str("market", market).
				Int("attempt", attempt).
				Dur("cooldown", f.config.Cooldown).
				Msg("Rate limited, pausing before next market fetch attempt")
			continue
		}

		f.logger.Error().
			Err(err).
			Str("market", market).
			Int("attempt", attempt).
			Msg("Market fetch attempt failed")
	}

	marketFetchesTotal.WithLabelValues("exhausted").Inc()
	return Result{}, fmt.Errorf("%w: market %s after %d attempts", ErrFetchFailed, market, f.config.MaxAttempts)
}

// cacheVersion resolves the current collection snapshot token from the
// space metadata, falling back to the current time when the endpoint
// is unavailable.
func (f *Fetcher) cacheVersion(ctx context.Context) string {
	version, err := f.client.SpaceVersion(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Space version unavailable, using current time as cache version")
		return strconv.FormatInt(time.Now().Unix(), 10)
	}
	return strconv.FormatInt(version, 10)
}

func (f *Fetcher) pageRequest(market string, page int, cacheVersion string) client.PageRequest {
	return client.PageRequest{
		Market:       market,
		Page:         page,
		PerPage:      f.config.PerPage,
		CacheVersion: cacheVersion,
		FallbackLang: f.config.FallbackLang,
	}
}
