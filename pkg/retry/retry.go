// Package retry wraps a single fallible operation with bounded attempts
// and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyblok_retries_total",
		Help: "Total number of retry attempts",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyblok_retry_backoff_seconds",
		Help:    "Backoff duration between retry attempts",
		Buckets: []float64{0.1, 0.5, 1, 2, 4, 8, 16, 32},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyblok_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

// Common errors returned by the retrier.
var (
	// ErrRetryExhausted is returned when all attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled
	// during a backoff delay.
	ErrContextCancelled = errors.New("context cancelled")
)

// Config holds the retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// Multiplier scales the delay after every failed attempt.
	Multiplier float64
}

// DefaultConfig returns the default retry configuration: 5 attempts,
// 1s initial delay, doubling between attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
	}
}

// withDefaults fills zero fields so a partially built Config stays usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	return c
}

// Do executes op with exponential backoff. Every error from op is
// treated as retryable; transient/permanent classification is the
// caller's concern. The delay runs between attempts only, never after
// the last, and honors context cancellation.
//
// On exhaustion the last cause is logged and discarded; the returned
// error wraps only ErrRetryExhausted and the attempt count.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			return result, nil
		}

		lastErr = err

		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.Inc()
		retryBackoffSeconds.Observe(delay.Seconds())

		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return zero, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	retryExhaustedTotal.Inc()
	log.Warn().
		Err(lastErr).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return zero, fmt.Errorf("%w after %d attempts", ErrRetryExhausted, cfg.MaxAttempts)
}
