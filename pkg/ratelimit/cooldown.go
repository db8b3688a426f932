// Package ratelimit provides a shared cooldown gate for CMS rate-limit
// responses. When the API answers 429, every in-flight market fetch
// waits out one common pause instead of hammering the API in parallel.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for cooldown tracking.
var (
	cooldownTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyblok_rate_limit_cooldowns_total",
		Help: "Total number of rate-limit cooldowns triggered",
	})

	cooldownWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyblok_rate_limit_wait_seconds",
		Help:    "Time spent waiting for rate-limit cooldowns",
		Buckets: []float64{1, 2, 5, 10, 20, 30},
	})
)

// DefaultCooldown is the fixed pause after a too-many-requests response.
const DefaultCooldown = 10 * time.Second

// Gate tracks an active rate-limit cooldown.
type Gate struct {
	mu     sync.Mutex
	until  time.Time
	logger zerolog.Logger
}

// NewGate creates a new cooldown gate.
func NewGate() *Gate {
	return &Gate{
		logger: log.With().Str("component", "ratelimit").Logger(),
	}
}

// TripFor starts a cooldown of duration d. An already-running longer
// cooldown is kept.
func (g *Gate) TripFor(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deadline := time.Now().Add(d)
	if deadline.After(g.until) {
		g.until = deadline
		cooldownTripsTotal.Inc()
		g.logger.Warn().
			Dur("cooldown", d).
			Msg("Rate limit cooldown tripped")
	}
}

// Active reports whether a cooldown is currently running.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Now().Before(g.until)
}

// Wait blocks until the current cooldown expires or ctx is done.
// It returns immediately when no cooldown is active.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	remaining := time.Until(g.until)
	g.mu.Unlock()

	if remaining <= 0 {
		return nil
	}

	cooldownWaitSeconds.Observe(remaining.Seconds())
	g.logger.Info().
		Dur("remaining", remaining).
		Msg("Waiting out rate limit cooldown")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(remaining):
		return nil
	}
}
