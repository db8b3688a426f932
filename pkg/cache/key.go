// Package cache provides a Redis-backed cache for raw story page
// responses, keyed by market, page and cache-version token.
package cache

import (
	"fmt"
	"strings"
)

// Key identifies one cached page response. The cache-version token is
// part of the key: a new collection snapshot never collides with pages
// cached under an older one.
type Key struct {
	Market       string
	Page         int
	CacheVersion string
}

// String generates a deterministic cache key string.
//
// Example:
//
//	stories:de-de:cv=1712345678:page=3
func (k Key) String() string {
	parts := []string{
		"stories",
		strings.ToLower(k.Market),
		fmt.Sprintf("cv=%s", k.CacheVersion),
		fmt.Sprintf("page=%d", k.Page),
	}
	return strings.Join(parts, ":")
}
