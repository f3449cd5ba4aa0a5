package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dealsync/hubspot-deals-client/pkg/deals"
)

// ErrPageLimit is returned by FetchAll when the configured MaxPages cap
// is reached before the remote stops returning cursors. The deals
// collected up to that point are still returned.
var ErrPageLimit = errors.New("pagination: page limit reached")

// Config holds pager configuration
type Config struct {
	// PageSize is the limit transmitted per page request (capped at 100
	// by the fetcher)
	PageSize int
	// PageTimeout bounds each individual page fetch
	PageTimeout time.Duration
	// MaxPages stops the loop after this many pages; 0 means unbounded
	MaxPages int
	// PageDelay is an optional pause between consecutive page requests
	PageDelay time.Duration
}

// DefaultConfig returns safe default configuration for HubSpot
func DefaultConfig() Config {
	return Config{
		PageSize:    100,
		PageTimeout: 30 * time.Second,
		MaxPages:    0,
	}
}

// PageFetcher is the interface the deal fetcher implements for
// single-page fetching
type PageFetcher interface {
	GetDeals(ctx context.Context, token string, req deals.PageRequest) (*deals.PageResult, error)
}

// Pager drives the sequential cursor loop over a PageFetcher
type Pager struct {
	fetcher PageFetcher
	config  Config
}

// NewPager creates a new pager
func NewPager(fetcher PageFetcher, config Config) *Pager {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = 30 * time.Second
	}

	return &Pager{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll walks the cursor chain until the remote stops returning a
// next cursor, concatenating all deals in received order. On a failed
// page it returns the deals collected so far together with the error.
func (p *Pager) FetchAll(ctx context.Context, token string, req deals.PageRequest) ([]deals.Deal, error) {
	var all []deals.Deal

	err := p.ForEachPage(ctx, token, req, func(page *deals.PageResult) error {
		all = append(all, page.Deals...)
		return nil
	})
	return all, err
}

// ForEachPage invokes handle for every page in cursor order. The loop
// stops when handle returns an error, the context is cancelled, the
// MaxPages cap is hit, or the remote returns no next cursor.
func (p *Pager) ForEachPage(ctx context.Context, token string, req deals.PageRequest, handle func(*deals.PageResult) error) error {
	start := time.Now()
	req.Limit = p.config.PageSize
	cursor := req.After

	log.Info().
		Int("page_size", p.config.PageSize).
		Int("max_pages", p.config.MaxPages).
		Msg("Starting deal pagination")

	pages := 0
	items := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Debug().
				Int("pages", pages).
				Msg("Pagination stopping (context cancelled)")
			return err
		}

		req.After = cursor
		pageCtx, cancel := context.WithTimeout(ctx, p.config.PageTimeout)
		page, err := p.fetcher.GetDeals(pageCtx, token, req)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("pages", pages).
				Int("items", items).
				Msg("Page fetch failed - returning partial results")
			return fmt.Errorf("page %d failed (partial data: %d deals): %w", pages+1, items, err)
		}

		pages++
		items += len(page.Deals)

		if err := handle(page); err != nil {
			return err
		}

		// Progress logging every 10 pages
		if pages%10 == 0 {
			log.Info().
				Int("pages", pages).
				Int("items", items).
				Msg("Pagination progress")
		}

		if !page.HasMore() {
			break
		}
		if p.config.MaxPages > 0 && pages >= p.config.MaxPages {
			log.Warn().
				Int("pages", pages).
				Int("items", items).
				Msg("Page limit reached before cursor chain ended")
			return ErrPageLimit
		}
		cursor = page.NextCursor

		if p.config.PageDelay > 0 {
			select {
			case <-time.After(p.config.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.Info().
		Int("pages", pages).
		Int("items", items).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return nil
}
