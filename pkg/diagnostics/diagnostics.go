// Package diagnostics probes a HubSpot account for connectivity,
// credential validity and API usage, aggregating the results into a
// single connection report. All probes are best-effort: a failing
// sub-step degrades the report instead of aborting it.
package diagnostics

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/dealsync/hubspot-deals-client/pkg/client"
	"github.com/dealsync/hubspot-deals-client/pkg/deals"
	"github.com/dealsync/hubspot-deals-client/pkg/logging"
	"github.com/dealsync/hubspot-deals-client/pkg/ratelimit"
)

const (
	propertiesPath = "/crm/v3/properties/deals"
	accountPath    = "/integrations/v1/me"
)

var connectionTestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hubspot_connection_tests_total",
		Help: "Total number of connection tests by outcome",
	},
	[]string{"outcome"},
)

// ConnectionReport is the aggregated result of a single TestConnection
// run. It is built once and not mutated afterwards.
type ConnectionReport struct {
	TokenValid     bool                `json:"token_valid"`
	APIReachable   bool                `json:"api_reachable"`
	DataAccessible bool                `json:"data_accessible"`
	AccountInfo    map[string]any      `json:"account_info,omitempty"`
	UsageInfo      *ratelimit.Snapshot `json:"usage_info,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// Checker runs diagnostic probes against the HubSpot API.
type Checker struct {
	client  *client.Client
	fetcher *deals.Fetcher
	logger  zerolog.Logger
}

// NewChecker creates a Checker sharing the given client and fetcher.
func NewChecker(c *client.Client, f *deals.Fetcher) *Checker {
	return &Checker{
		client:  c,
		fetcher: f,
		logger:  logging.NewLogger("diagnostics"),
	}
}

// ValidateCredentials issues a minimal properties-list request and
// reports whether the token was accepted. A non-200 status means the
// token is invalid; the returned error is non-nil only for transport
// faults, and even then the bool is a usable answer (false).
func (ch *Checker) ValidateCredentials(ctx context.Context, token string) (bool, error) {
	resp, err := ch.client.Get(ctx, propertiesPath, minimalQuery(), token)
	if err != nil {
		ch.logger.Warn().Err(err).Msg("Credential validation request failed")
		return false, err
	}
	defer resp.Body.Close()

	valid := resp.StatusCode == 200
	ch.logger.Debug().
		Int("status_code", resp.StatusCode).
		Bool("valid", valid).
		Msg("Credential validation completed")
	return valid, nil
}

// GetAccountInfo fetches the lightweight account descriptor for the
// token's portal. Best-effort: a non-200 status yields (nil, nil) so
// callers can treat "no account info" as a normal outcome; only
// transport faults surface as errors.
func (ch *Checker) GetAccountInfo(ctx context.Context, token string) (map[string]any, error) {
	start := time.Now()

	resp, err := ch.client.Get(ctx, accountPath, nil, token)
	if err != nil {
		ch.logger.Warn().Err(err).Msg("Account info request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		ch.logger.Warn().
			Int("status_code", resp.StatusCode).
			Msg("Account info unavailable")
		return nil, nil
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		ch.logger.Warn().Err(err).Msg("Failed to decode account info")
		return nil, err
	}

	ch.logger.Debug().
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Account info fetched")
	return info, nil
}

// GetAPIUsage issues the same minimal request as credential validation
// and extracts the rate-limit usage headers from the response. Returns
// nil when the request did not succeed with a 200, or when the response
// carries none of the usage headers.
func (ch *Checker) GetAPIUsage(ctx context.Context, token string) (*ratelimit.Snapshot, error) {
	resp, err := ch.client.Get(ctx, propertiesPath, minimalQuery(), token)
	if err != nil {
		ch.logger.Warn().Err(err).Msg("API usage request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		ch.logger.Warn().
			Int("status_code", resp.StatusCode).
			Msg("API usage unavailable")
		return nil, nil
	}

	snapshot := ratelimit.FromHeaders(resp.Header)
	if snapshot == nil {
		ch.logger.Debug().Msg("Response carried no rate limit headers")
		return nil, nil
	}

	ch.logger.Debug().
		Int("header_count", len(snapshot.Headers)).
		Msg("API usage captured")
	return snapshot, nil
}

// TestConnection runs the full diagnostic sequence: credential
// validation, then account info, usage headers and a one-page data
// probe. Account, usage and data probes are skipped entirely when the
// credential is invalid. Sub-step failures degrade the corresponding
// report fields; Error is set only when the orchestration itself is
// interrupted, such as by context cancellation between steps.
func (ch *Checker) TestConnection(ctx context.Context, token string) *ConnectionReport {
	report := &ConnectionReport{}

	valid, err := ch.ValidateCredentials(ctx, token)
	if err != nil && ctx.Err() != nil {
		report.Error = ctx.Err().Error()
		connectionTestsTotal.WithLabelValues("aborted").Inc()
		return report
	}
	if !valid {
		ch.logger.Warn().Msg("Connection test aborted, credential invalid")
		connectionTestsTotal.WithLabelValues("invalid_token").Inc()
		return report
	}

	report.TokenValid = true
	report.APIReachable = true

	if ctx.Err() != nil {
		report.Error = ctx.Err().Error()
		connectionTestsTotal.WithLabelValues("aborted").Inc()
		return report
	}

	if info, err := ch.GetAccountInfo(ctx, token); err == nil && info != nil {
		report.AccountInfo = info
	}

	if ctx.Err() != nil {
		report.Error = ctx.Err().Error()
		connectionTestsTotal.WithLabelValues("aborted").Inc()
		return report
	}

	if usage, err := ch.GetAPIUsage(ctx, token); err == nil && usage != nil {
		report.UsageInfo = usage
	}

	if ctx.Err() != nil {
		report.Error = ctx.Err().Error()
		connectionTestsTotal.WithLabelValues("aborted").Inc()
		return report
	}

	page, err := ch.fetcher.GetDeals(ctx, token, deals.PageRequest{Limit: 1})
	if err != nil {
		ch.logger.Warn().Err(err).Msg("Data access probe failed")
	} else {
		report.DataAccessible = true
		ch.logger.Debug().
			Int("deal_count", len(page.Deals)).
			Msg("Data access probe succeeded")
	}

	outcome := "ok"
	if !report.DataAccessible {
		outcome = "degraded"
	}
	connectionTestsTotal.WithLabelValues(outcome).Inc()

	ch.logger.Info().
		Bool("token_valid", report.TokenValid).
		Bool("data_accessible", report.DataAccessible).
		Bool("has_account_info", report.AccountInfo != nil).
		Bool("has_usage_info", report.UsageInfo != nil).
		Msg("Connection test completed")
	return report
}

func minimalQuery() url.Values {
	q := url.Values{}
	q.Set("limit", "1")
	return q
}
