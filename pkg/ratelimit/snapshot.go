// Package ratelimit parses the X-HubSpot-RateLimit response headers into
// usage snapshots and provides the retry interval used for 429 backoff.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HubSpot rate limit header names.
const (
	HeaderDaily                = "X-HubSpot-RateLimit-Daily"
	HeaderDailyRemaining       = "X-HubSpot-RateLimit-Daily-Remaining"
	HeaderIntervalMilliseconds = "X-HubSpot-RateLimit-Interval-Milliseconds"
	HeaderMax                  = "X-HubSpot-RateLimit-Max"
	HeaderRemaining            = "X-HubSpot-RateLimit-Remaining"
	HeaderSecondly             = "X-HubSpot-RateLimit-Secondly"
	HeaderSecondlyRemaining    = "X-HubSpot-RateLimit-Secondly-Remaining"
)

// DefaultRetryInterval is the 429 backoff used when the interval header is
// absent or unparsable.
const DefaultRetryInterval = 10 * time.Second

// Prometheus metrics for rate limit observation.
var (
	dailyRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubspot_rate_limit_daily_remaining",
		Help: "Remaining HubSpot API calls in the current daily window",
	})

	intervalRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubspot_rate_limit_interval_remaining",
		Help: "Remaining HubSpot API calls in the current rolling interval",
	})
)

// usageHeaders is the fixed set of headers captured in a Snapshot,
// in the order they are reported by HubSpot documentation.
var usageHeaders = []string{
	HeaderDaily,
	HeaderDailyRemaining,
	HeaderIntervalMilliseconds,
	HeaderMax,
	HeaderRemaining,
	HeaderSecondly,
	HeaderSecondlyRemaining,
}

// UsageHeaders returns the fixed set of rate limit header names captured in
// a Snapshot.
func UsageHeaders() []string {
	out := make([]string, len(usageHeaders))
	copy(out, usageHeaders)
	return out
}

// Snapshot captures the HubSpot rate limit headers of a single response,
// verbatim, with the time of capture.
type Snapshot struct {
	// Headers maps rate limit header names to their string values.
	// Only headers present on the response are included.
	Headers map[string]string `json:"headers"`

	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}

// FromHeaders extracts a usage snapshot from response headers.
// Returns nil when none of the rate limit headers are present.
func FromHeaders(h http.Header) *Snapshot {
	values := make(map[string]string)
	for _, name := range usageHeaders {
		if v := h.Get(name); v != "" {
			values[name] = v
		}
	}
	if len(values) == 0 {
		return nil
	}

	snap := &Snapshot{
		Headers:    values,
		CapturedAt: time.Now().UTC(),
	}

	if n, ok := snap.DailyRemaining(); ok {
		dailyRemaining.Set(float64(n))
	}
	if n, ok := snap.IntervalRemaining(); ok {
		intervalRemaining.Set(float64(n))
	}

	return snap
}

// Get returns the verbatim value of a captured header. The second
// return value is false when the header was not present on the response.
func (s *Snapshot) Get(name string) (string, bool) {
	v, ok := s.Headers[name]
	return v, ok
}

// DailyRemaining returns the parsed daily-remaining counter.
// The second return value is false when the header was absent or unparsable.
func (s *Snapshot) DailyRemaining() (int, bool) {
	return s.intValue(HeaderDailyRemaining)
}

// IntervalRemaining returns the parsed rolling-interval-remaining counter.
// The second return value is false when the header was absent or unparsable.
func (s *Snapshot) IntervalRemaining() (int, bool) {
	return s.intValue(HeaderRemaining)
}

func (s *Snapshot) intValue(name string) (int, bool) {
	v, ok := s.Headers[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RetryInterval returns the backoff duration a 429 response asks for.
// HubSpot reports the interval in milliseconds; DefaultRetryInterval is
// used when the header is absent, unparsable, or negative. A reported
// zero is honored as an immediate retry.
func RetryInterval(h http.Header) time.Duration {
	v := h.Get(HeaderIntervalMilliseconds)
	if v == "" {
		return DefaultRetryInterval
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return DefaultRetryInterval
	}
	return time.Duration(ms) * time.Millisecond
}
