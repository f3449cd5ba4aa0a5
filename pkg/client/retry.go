package client

import (
	"io"
	"net/http"
	"time"

	"github.com/dealsync/hubspot-deals-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for 429 handling.
var (
	rateLimitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubspot_rate_limit_retries_total",
		Help: "Total number of requests reissued after a 429 response",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hubspot_rate_limit_wait_seconds",
		Help:    "Backoff duration waited before reissuing a rate limited request",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// retryAfterRateLimit handles the HubSpot 429 contract: wait for the
// header-specified interval (ratelimit.DefaultRetryInterval when absent),
// then reissue the identical request exactly once. The second response is
// returned as-is, even if it is another 429; no exponential backoff, no
// jitter. The wait honors context cancellation.
func (c *Client) retryAfterRateLimit(req *http.Request, first *http.Response) (*http.Response, error) {
	endpoint := req.URL.Path
	wait := ratelimit.RetryInterval(first.Header)

	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status_code", first.StatusCode).
		Float64("retry_after_ms", float64(wait.Milliseconds())).
		Msg("Rate limited, retrying after interval")

	drainBody(first)

	rateLimitRetriesTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())

	start := time.Now()
	select {
	case <-req.Context().Done():
		return nil, &RequestError{
			Op:       req.Method + " " + endpoint,
			Duration: time.Since(start),
			Err:      req.Context().Err(),
		}
	case <-time.After(wait):
	}

	retry := req.Clone(req.Context())
	resp, err := c.httpClient.Do(retry)
	if err != nil {
		elapsed := time.Since(start)
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()

		c.logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Msg("Retry after rate limit failed")

		return nil, &RequestError{
			Op:       req.Method + " " + endpoint,
			Duration: elapsed,
			Err:      err,
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Still rate limited after retry, giving up")
	}

	return resp, nil
}

// drainBody consumes and closes a response body so the underlying
// connection can be reused.
func drainBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
