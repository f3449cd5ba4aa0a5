// Package client provides the authenticated HubSpot HTTP client with
// rate-limit aware request execution.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dealsync/hubspot-deals-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production HubSpot API endpoint.
const DefaultBaseURL = "https://api.hubapi.com"

// Prometheus metrics for HubSpot client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_requests_total",
		Help: "Total HubSpot requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_request_duration_seconds",
		Help:    "HubSpot request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_errors_total",
		Help: "Total HubSpot errors by class",
	}, []string{"class"})
)

// Client is the authenticated HubSpot session. The base URL is immutable
// after construction; the default access token may be overwritten at any
// time via SetAccessToken, but every operation also accepts an explicit
// per-call token so that concurrent callers with distinct credentials do
// not have to share mutable state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	usage      *ratelimit.Store
	logger     zerolog.Logger

	mu           sync.RWMutex
	defaultToken string
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the HubSpot API (default DefaultBaseURL).
	BaseURL string

	// User-Agent header sent on every request.
	UserAgent string

	// Redis client, optional. When set, usage snapshots observed on
	// responses are persisted for other workers to read, and the deal
	// properties schema may be cached.
	Redis *redis.Client

	// Timeout of the underlying HTTP client.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "hubspot-deals-client/1.0",
		Timeout:   30 * time.Second,
	}
}

// New creates a new HubSpot client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "hubspot-client").Logger()

	var usage *ratelimit.Store
	if cfg.Redis != nil {
		usage = ratelimit.NewStore(cfg.Redis, logger)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		usage:   usage,
		logger:  logger,
	}, nil
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAccessToken overwrites the default bearer credential used when an
// operation is called with an empty per-call token. Last write wins.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.defaultToken = token
	c.mu.Unlock()

	c.logger.Debug().Msg("Access token set")
}

// token resolves the credential for one request: the per-call token when
// given, otherwise the session default.
func (c *Client) token(perCall string) string {
	if perCall != "" {
		return perCall
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultToken
}

// Do performs an HTTP request with single-shot 429 retry handling.
// This is the core request method; see retry.go for the backoff contract.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing HubSpot request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		elapsed := time.Since(startTime)
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()

		c.logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Float64("duration_ms", float64(elapsed.Milliseconds())).
			Msg("HTTP request failed")

		return nil, &RequestError{
			Op:       req.Method + " " + endpoint,
			Duration: elapsed,
			Err:      err,
		}
	}

	c.observeUsage(req, resp)

	if resp.StatusCode == http.StatusTooManyRequests {
		resp, err = c.retryAfterRateLimit(req, resp)
		if err != nil {
			return nil, err
		}
		c.observeUsage(req, resp)
	}

	elapsed := time.Since(startTime)
	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		errorsTotal.WithLabelValues(string(classifyStatus(resp.StatusCode))).Inc()
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status_code", resp.StatusCode).
		Float64("duration_ms", float64(elapsed.Milliseconds())).
		Msg("HubSpot request completed")

	return resp, nil
}

// Get performs an authenticated GET against an API path. The token may be
// empty, in which case the session default set via SetAccessToken is used.
func (c *Client) Get(ctx context.Context, path string, query url.Values, token string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, path, query, token)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// NewRequest builds an authenticated GET request with the fixed JSON
// headers and bearer credential applied.
func (c *Client) NewRequest(ctx context.Context, path string, query url.Values, token string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if tok := c.token(token); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	return req, nil
}

// observeUsage records rate limit headers from a response: Prometheus
// gauges always, Redis persistence when configured. Best effort.
func (c *Client) observeUsage(req *http.Request, resp *http.Response) {
	snap := ratelimit.FromHeaders(resp.Header)
	if snap == nil || c.usage == nil {
		return
	}

	if err := c.usage.Save(req.Context(), snap); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist usage snapshot")
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
