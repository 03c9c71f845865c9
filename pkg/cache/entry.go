package cache

import (
	"time"
)

// Entry is a cached SendGrid response.
type Entry struct {
	// Data is the normalized JSON payload
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the original response
	StatusCode int `json:"status_code"`

	// URL is the resolved request URL
	URL string `json:"url"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
