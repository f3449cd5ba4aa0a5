package deals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dealsync/hubspot-deals-client/pkg/cache"
	"github.com/dealsync/hubspot-deals-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HubSpot CRM v3 endpoints consumed by the fetcher.
const (
	propertiesPath = "/crm/v3/properties/deals"
	dealsPath      = "/crm/v3/objects/deals"
)

// Fetcher retrieves deal pages and metadata through an authenticated
// client.
type Fetcher struct {
	client    *client.Client
	schema    *cache.Manager
	testDelay time.Duration
	logger    zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSchemaCache enables Redis caching of the deal properties schema.
func WithSchemaCache(m *cache.Manager) Option {
	return func(f *Fetcher) {
		f.schema = m
	}
}

// WithTestDelay injects a fixed delay before each GetDeals request, to
// simulate a slow upstream during testing. This is configuration, not a
// retry mechanism.
func WithTestDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.testDelay = d
		}
	}
}

// NewFetcher creates a deal fetcher on top of an authenticated client.
func NewFetcher(c *client.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: c,
		logger: log.With().Str("component", "deal-fetcher").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetDealProperties returns the full schema of deal fields the account
// exposes. The schema is served from the Redis cache when one is
// configured and warm.
func (f *Fetcher) GetDealProperties(ctx context.Context, token string) ([]PropertyDefinition, error) {
	startTime := time.Now()
	key := cache.Key{Path: propertiesPath}

	if f.schema != nil {
		entry, err := f.schema.Get(ctx, key)
		if err == nil {
			var envelope propertiesEnvelope
			if err := json.Unmarshal(entry.Data, &envelope); err == nil {
				f.logger.Debug().
					Int("property_count", len(envelope.Results)).
					Msg("Deal properties served from cache")
				return envelope.Results, nil
			}
			// Corrupted entry, fall through to a live fetch.
			_ = f.schema.Delete(ctx, key)
		} else if err != cache.ErrCacheMiss {
			f.logger.Warn().Err(err).Msg("Schema cache get error")
		}
	}

	f.logger.Info().Msg("Fetching deal properties")

	resp, err := f.client.Get(ctx, propertiesPath, nil, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, client.ErrorFromResponse("GET "+propertiesPath, resp, time.Since(startTime))
	}

	if f.schema != nil {
		entry, err := f.schema.ResponseToEntry(resp)
		if err != nil {
			f.logger.Warn().Err(err).Msg("Failed to create schema cache entry")
		} else if err := f.schema.Set(ctx, key, entry); err != nil {
			f.logger.Warn().Err(err).Msg("Failed to cache deal properties")
		}
	}

	var envelope propertiesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode deal properties: %w", err)
	}

	f.logger.Info().
		Int("property_count", len(envelope.Results)).
		Float64("duration_ms", float64(time.Since(startTime).Milliseconds())).
		Msg("Deal properties retrieved")

	return envelope.Results, nil
}

// GetDeals fetches one page of the deal collection. Pagination is driven
// by the caller (or pagination.Pager): pass the previous page's NextCursor
// as req.After until it comes back empty.
func (f *Fetcher) GetDeals(ctx context.Context, token string, req PageRequest) (*PageResult, error) {
	startTime := time.Now()

	if f.testDelay > 0 {
		f.logger.Info().
			Float64("delay_ms", float64(f.testDelay.Milliseconds())).
			Msg("Test delay before deal page fetch")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.testDelay):
		}
	}

	query := req.query()

	f.logger.Info().
		Str("limit", query.Get("limit")).
		Bool("has_cursor", req.After != "").
		Int("properties_count", len(strings.Split(query.Get("properties"), ","))).
		Msg("Fetching deals page")

	resp, err := f.client.Get(ctx, dealsPath, query, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, client.ErrorFromResponse("GET "+dealsPath, resp, time.Since(startTime))
	}

	var envelope dealsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode deals page: %w", err)
	}

	result := &PageResult{Deals: envelope.Results}
	if envelope.Paging != nil && envelope.Paging.Next != nil {
		result.NextCursor = envelope.Paging.Next.After
	}

	f.logger.Info().
		Int("deal_count", len(result.Deals)).
		Bool("has_more", result.HasMore()).
		Float64("duration_ms", float64(time.Since(startTime).Milliseconds())).
		Msg("Deals page retrieved")

	return result, nil
}

// GetDealByID fetches a single deal. A 404 is a normal outcome and yields
// (nil, nil); any other non-2xx status is a request failure.
func (f *Fetcher) GetDealByID(ctx context.Context, token, dealID string, properties, associations []string) (*Deal, error) {
	startTime := time.Now()
	path := dealsPath + "/" + url.PathEscape(dealID)

	query := url.Values{}
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}
	if len(associations) > 0 {
		query.Set("associations", strings.Join(associations, ","))
	}

	resp, err := f.client.Get(ctx, path, query, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		f.logger.Warn().
			Str("deal_id", dealID).
			Msg("Deal not found")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, client.ErrorFromResponse("GET "+path, resp, time.Since(startTime))
	}

	var deal Deal
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		return nil, fmt.Errorf("decode deal: %w", err)
	}

	return &deal, nil
}
