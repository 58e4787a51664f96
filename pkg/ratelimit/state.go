// Package ratelimit observes Discord's per-route rate-limit headers.
//
// The exporter never sleeps on these values: every request is issued once and
// the tracker only records what Discord reported so exhausted buckets and 429
// responses show up in logs and metrics.
package ratelimit

import (
	"time"
)

// Discord rate-limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderResetAfter = "X-RateLimit-Reset-After"
	HeaderBucket     = "X-RateLimit-Bucket"
	HeaderGlobal     = "X-RateLimit-Global"
	HeaderScope      = "X-RateLimit-Scope"
	HeaderRetryAfter = "Retry-After"
)

// unknownBucket is used when Discord omits X-RateLimit-Bucket.
const unknownBucket = "unknown"

// BucketState is the last reported state of one rate-limit bucket.
type BucketState struct {
	// Bucket is the opaque bucket hash from X-RateLimit-Bucket.
	Bucket string `json:"bucket"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets, derived from X-RateLimit-Reset-After.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the headers were observed.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *BucketState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// Exhausted reports whether the bucket has no requests left in its window.
func (s *BucketState) Exhausted() bool {
	return s.Remaining <= 0 && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the bucket resets, or 0 if the
// reset time has passed.
func (s *BucketState) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
