package cache

import "time"

// Entry is one cached page response.
type Entry struct {
	// Data is the raw response body.
	Data []byte `json:"data"`

	// Total is the collection size reported alongside the original
	// response. It travels with the body so a cache hit can still
	// size the pagination.
	Total int `json:"total"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
