// Package pagination drains cursor-paginated HubSpot deal listings.
//
// HubSpot's CRM v3 collection endpoints page with an opaque `after`
// cursor: each page response carries the cursor for the next page, so
// pages must be fetched sequentially. This package wraps that loop
// with per-page timeouts, progress logging and an optional page cap.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	pager := pagination.NewPager(fetcher, config)
//	allDeals, err := pager.FetchAll(ctx, token, deals.PageRequest{})
//
// The pager:
//   - Issues one page request at a time, threading the returned cursor
//   - Applies a per-page timeout on top of the caller's context
//   - Logs progress at a fixed page interval
//   - Handles errors gracefully (returns partial data)
package pagination
