package storage

import (
	"time"
)

// CacheEntry is a transient: a value that stops being returned once ExpiresAt has passed.
type CacheEntry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
// A zero ExpiresAt never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(e.ExpiresAt)
}
