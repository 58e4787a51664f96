package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discord_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the backoff parameters for one error class.
type RetryConfig struct {
	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default backoff parameters.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass returns the backoff parameters for an error class.
func RetryConfigForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassServer:
		return RetryConfig{
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassNetwork:
		return RetryConfig{
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultRetryConfig()
	}
}

// retrier runs a request function up to maxAttempts times.
type retrier struct {
	maxAttempts int
	// initialBackoff replaces the class default when positive.
	initialBackoff time.Duration
}

// backoff returns the un-jittered wait after the given failed attempt.
func (r retrier) backoff(class ErrorClass, attempt int) time.Duration {
	cfg := RetryConfigForErrorClass(class)
	if r.initialBackoff > 0 {
		cfg.InitialBackoff = r.initialBackoff
	}

	d := cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * cfg.BackoffMultiplier)
		if d >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	if d > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return d
}

// do executes fn with exponential backoff. classify decides whether a failure
// is retried. With maxAttempts <= 1 the first error is returned unchanged.
func (r retrier) do(ctx context.Context, fn func() error, classify func(error) ErrorClass) error {
	maxAttempts := r.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	var lastClass ErrorClass

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		lastClass = classify(err)

		if !shouldRetry(lastClass) || maxAttempts == 1 {
			return lastErr
		}

		if attempt >= maxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(lastClass)).Inc()

		// ±20% jitter
		base := r.backoff(lastClass, attempt)
		jitter := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(jitter.Seconds())

		log.Debug().
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn().
				Str("error_class", string(lastClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	log.Warn().
		Str("error_class", string(lastClass)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}
