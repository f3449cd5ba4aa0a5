// Package cache provides an optional Redis-backed cache for the deal
// properties schema, which changes rarely but is fetched on every
// extraction run and every connection test.
package cache

import (
	"time"
)

// Entry is a cached schema response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// StatusCode of the cached response (always 200 in practice; non-2xx
	// responses are never cached).
	StatusCode int `json:"status_code"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has passed its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiry, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
