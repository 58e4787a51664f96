package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "discord_ratelimit_remaining",
		Help: "Requests remaining in the current Discord rate-limit window by bucket",
	}, []string{"bucket"})

	rateLimitExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discord_ratelimit_exhausted_total",
		Help: "Total number of responses that reported an exhausted rate-limit bucket",
	})

	rateLimitedResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_ratelimited_responses_total",
		Help: "Total number of 429 responses by scope",
	}, []string{"scope"})
)

// Tracker records the rate-limit state Discord reports in response headers.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	buckets map[string]BucketState
	last    string
	logger  zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		buckets: make(map[string]BucketState),
		logger:  logger,
	}
}

// UpdateFromHeaders parses the X-RateLimit-* headers of a response and stores
// the resulting bucket state. Responses without rate-limit headers are ignored.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limit := 0
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	resetAfter, err := parseSeconds(headers.Get(HeaderResetAfter))
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderResetAfter, err)
	}

	bucket := headers.Get(HeaderBucket)
	if bucket == "" {
		bucket = unknownBucket
	}

	now := time.Now()
	state := BucketState{
		Bucket:     bucket,
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    now.Add(resetAfter),
		LastUpdate: now,
	}

	t.mu.Lock()
	t.buckets[bucket] = state
	t.last = bucket
	t.mu.Unlock()

	rateLimitRemaining.WithLabelValues(bucket).Set(float64(remain))

	if state.Exhausted() {
		rateLimitExhaustedTotal.Inc()
		t.logger.Warn().
			Str("bucket", bucket).
			Int("limit", limit).
			Dur("reset_after", resetAfter).
			Msg("Discord rate-limit bucket exhausted")
		return nil
	}

	t.logger.Debug().
		Str("bucket", bucket).
		Int("remaining", remain).
		Int("limit", limit).
		Msg("Discord rate-limit state updated")

	return nil
}

// RecordRateLimited logs a 429 response. It returns the Retry-After duration
// Discord asked for so callers can report it; nothing waits on it.
func (t *Tracker) RecordRateLimited(headers http.Header) time.Duration {
	scope := headers.Get(HeaderScope)
	if scope == "" {
		scope = "user"
	}
	if headers.Get(HeaderGlobal) == "true" {
		scope = "global"
	}

	retryAfter, err := parseSeconds(headers.Get(HeaderRetryAfter))
	if err != nil {
		t.logger.Debug().Err(err).Msg("Unparseable Retry-After header")
	}

	rateLimitedResponsesTotal.WithLabelValues(scope).Inc()
	t.logger.Error().
		Str("scope", scope).
		Dur("retry_after", retryAfter).
		Msg("Discord rate limit hit")

	return retryAfter
}

// State returns the last observed state of a bucket.
func (t *Tracker) State(bucket string) (BucketState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.buckets[bucket]
	return s, ok
}

// Last returns the most recently updated bucket state.
func (t *Tracker) Last() (BucketState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == "" {
		return BucketState{}, false
	}
	return t.buckets[t.last], true
}

// parseSeconds parses Discord's fractional-seconds header values.
func parseSeconds(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
