package cache

import (
	"time"
)

// NameEntry is a cached display name for a channel or thread.
type NameEntry struct {
	// ID is the snowflake the name belongs to.
	ID string `json:"id"`

	// Name is the display name returned by Discord.
	Name string `json:"name"`

	// Type is the Discord channel type (forum, public thread, ...).
	Type int `json:"type"`

	// Expires is when the entry stops being served.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewNameEntry creates an entry that expires after ttl.
func NewNameEntry(id, name string, channelType int, ttl time.Duration) *NameEntry {
	now := time.Now()
	return &NameEntry{
		ID:       id,
		Name:     name,
		Type:     channelType,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *NameEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *NameEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
