// Package cache provides page-response caching with a Redis backend.
//
// The cache stores raw story page bodies keyed by (market, page,
// cache-version token). Because a cache-version token identifies one
// snapshot of the remote collection, a hit under the current token is
// always consistent with the rest of the paginated fetch; entries for
// superseded tokens simply age out via TTL.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	// Create cache key
//	key := cache.Key{
//		Market:       "de-de",
//		Page:         3,
//		CacheVersion: "1712345678",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the CMS
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - storyblok_cache_hits_total - Cache hits
//   - storyblok_cache_misses_total - Cache misses
//   - storyblok_cache_errors_total{operation} - Cache operation errors
//
// Cache failures never fail a fetch: callers log them and fall back to
// a direct request.
package cache
