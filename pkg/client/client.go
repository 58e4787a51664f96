// Package client provides the Discord REST client used by the exporter:
// channel and thread metadata lookups and the forum thread search, with
// rate-limit observation, an optional Redis name cache and error handling.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/discord-thread-export/pkg/cache"
	"github.com/Sternrassler/discord-thread-export/pkg/ratelimit"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Discord API host.
	DefaultBaseURL = "https://discord.com"

	// DefaultUserAgent identifies the exporter to Discord.
	DefaultUserAgent = "DiscordBot (https://github.com/Sternrassler/discord-thread-export, 0.1.0)"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_requests_total",
		Help: "Total Discord API requests by route and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discord_request_duration_seconds",
		Help:    "Discord API request duration in seconds by route",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_errors_total",
		Help: "Total Discord API errors by class",
	}, []string{"class"})
)

// Client talks to the Discord REST API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	baseURL     string
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Token is sent verbatim (trimmed) in the Authorization header.
	Token string

	// BaseURL is the API host, without the /api/v9 prefix.
	BaseURL string

	// UserAgent header value.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// MaxAttempts per request. 1 disables retries; only 5xx and network
	// failures are ever retried.
	MaxAttempts int

	// InitialBackoff overrides the per-class initial backoff when positive.
	InitialBackoff time.Duration

	// Cache stores resolved names. Nil disables caching.
	Cache *cache.Manager
}

// DefaultConfig returns a configuration for the public Discord API.
func DefaultConfig(token string) Config {
	return Config{
		Token:       token,
		BaseURL:     DefaultBaseURL,
		UserAgent:   DefaultUserAgent,
		Timeout:     30 * time.Second,
		MaxAttempts: 1,
	}
}

// New creates a new Discord client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("token is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "discord-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(logger),
		cache:       cfg.Cache,
		config:      cfg,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		logger:      logger,
	}, nil
}

// Do performs an authenticated request. Network failures and 5xx responses
// are retried up to MaxAttempts; any other response is returned to the caller
// with a nil error, whatever its status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := routeLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("Authorization", strings.TrimSpace(c.config.Token))
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing Discord request")

	var resp *http.Response

	r := retrier{maxAttempts: c.config.MaxAttempts, initialBackoff: c.config.InitialBackoff}
	err := r.do(ctx, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		if err := c.rateLimiter.UpdateFromHeaders(resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to parse rate-limit headers")
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 400 {
			return nil
		}

		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Discord request error")

		if errClass == ErrorClassRateLimit {
			c.rateLimiter.RecordRateLimited(resp.Header)
		}

		if shouldRetry(errClass) {
			apiErr := c.decodeAPIError(resp)
			resp.Body.Close()
			resp = nil
			return apiErr
		}

		return nil
	}, classifyErr)

	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}

	return resp, nil
}

// classifyErr maps errors produced inside Do to a retry class.
func classifyErr(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}

// Get performs a GET request against an API path such as
// "/api/v9/channels/123".
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// getJSON performs a GET and decodes a 200 response into out. Any other
// status becomes an *APIError.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", routeLabel(path), err)
	}
	return nil
}

// decodeAPIError builds an APIError from Discord's JSON error body.
func (c *Client) decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiErr.Err = err
		return apiErr
	}

	var msg discordgo.APIErrorMessage
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		apiErr.Code = msg.Code
		apiErr.Message = msg.Message
	}

	return apiErr
}

// routeLabel replaces snowflake path segments so metrics stay low-cardinality.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseUint(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// RateLimits returns the tracker fed by every response.
func (c *Client) RateLimits() *ratelimit.Tracker {
	return c.rateLimiter
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
