// Package bulk runs a queue of deferred operations in bounded-size
// concurrent chunks, retrying each member with exponential backoff.
package bulk

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/retry"
)

// Prometheus metrics for bulk scheduling.
var (
	bulkOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_bulk_ops_total",
		Help: "Total bulk scheduler operations by outcome",
	}, []string{"outcome"})

	bulkChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyblok_bulk_chunks_total",
		Help: "Total number of chunks executed by the bulk scheduler",
	})
)

// Op is one deferred operation scheduled by Run.
type Op[T any] func(ctx context.Context) (T, error)

// Config holds bulk scheduler configuration.
type Config struct {
	// BulkSize is the number of operations that run concurrently
	// within one chunk.
	BulkSize int

	// Retry is applied to every member operation.
	Retry retry.Config
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		BulkSize: 10,
		Retry:    retry.DefaultConfig(),
	}
}

// Result collects the outcome of one Run call. Values holds successes
// in chunk order; order within a chunk is unspecified. Failed counts
// members that exhausted their retries and contributed nothing.
type Result[T any] struct {
	Values []T
	Failed int
}

// Complete reports whether every operation succeeded.
func (r Result[T]) Complete() bool {
	return r.Failed == 0
}

// Run splits ops into contiguous chunks of cfg.BulkSize. Chunks run
// sequentially; members within a chunk run concurrently, each wrapped
// by the retrier. The next chunk never starts before every member of
// the current one has settled. A member that exhausts its retries is
// logged and skipped; it never aborts the batch.
func Run[T any](ctx context.Context, ops []Op[T], cfg Config) Result[T] {
	if cfg.BulkSize <= 0 {
		cfg.BulkSize = DefaultConfig().BulkSize
	}

	result := Result[T]{Values: make([]T, 0, len(ops))}

	for start := 0; start < len(ops); start += cfg.BulkSize {
		end := start + cfg.BulkSize
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[start:end]
		bulkChunksTotal.Inc()

		values := make([]T, len(chunk))
		errs := make([]error, len(chunk))

		var wg sync.WaitGroup
		for i, op := range chunk {
			wg.Add(1)
			go func(i int, op Op[T]) {
				defer wg.Done()
				values[i], errs[i] = retry.Do(ctx, cfg.Retry, op)
			}(i, op)
		}
		wg.Wait()

		for i := range chunk {
			if errs[i] != nil {
				bulkOpsTotal.WithLabelValues("failed").Inc()
				log.Warn().
					Err(errs[i]).
					Int("op_index", start+i).
					Msg("Bulk operation failed permanently")
				result.Failed++
				continue
			}
			bulkOpsTotal.WithLabelValues("success").Inc()
			result.Values = append(result.Values, values[i])
		}
	}

	return result
}
