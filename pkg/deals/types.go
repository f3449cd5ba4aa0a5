// Package deals implements the HubSpot CRM v3 deal fetch operations:
// the properties schema, paginated deal pages, and single deals by id.
package deals

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// MaxPageSize is the largest page HubSpot accepts; larger requested
// limits are silently capped before transmission.
const MaxPageSize = 100

// defaultProperties is the field set requested when a caller does not name
// any properties.
var defaultProperties = []string{
	"dealname",
	"amount",
	"dealstage",
	"pipeline",
	"closedate",
	"createdate",
	"hs_lastmodifieddate",
}

// DefaultProperties returns the deal fields fetched when a PageRequest
// names none.
func DefaultProperties() []string {
	out := make([]string, len(defaultProperties))
	copy(out, defaultProperties)
	return out
}

// Deal is one CRM deal record. Property values pass through verbatim as
// HubSpot returns them (the v3 API serializes every property value as a
// string); no local schema is imposed.
type Deal struct {
	ID           string            `json:"id"`
	Properties   map[string]string `json:"properties"`
	CreatedAt    string            `json:"createdAt,omitempty"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
	Archived     bool              `json:"archived,omitempty"`
	Associations json.RawMessage   `json:"associations,omitempty"`
}

// PropertyDefinition describes one deal field from the properties schema.
type PropertyDefinition struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	FieldType   string `json:"fieldType"`
	GroupName   string `json:"groupName"`
	Description string `json:"description,omitempty"`
}

// PageRequest describes one page of the deal collection.
type PageRequest struct {
	// Limit is the page size; values above MaxPageSize are capped, values
	// <= 0 request a full page.
	Limit int

	// After is the opaque pagination cursor from the previous page;
	// empty for the first page.
	After string

	// Properties are the deal fields to fetch. Nil or empty substitutes
	// DefaultProperties; there is no way to request zero fields.
	Properties []string

	// Associations are the relation names to include (e.g. "contacts").
	Associations []string
}

// query renders the request as transmitted query parameters.
func (r PageRequest) query() url.Values {
	limit := r.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	if r.After != "" {
		q.Set("after", r.After)
	}

	props := r.Properties
	if len(props) == 0 {
		props = defaultProperties
	}
	q.Set("properties", strings.Join(props, ","))

	if len(r.Associations) > 0 {
		q.Set("associations", strings.Join(r.Associations, ","))
	}

	return q
}

// PageResult is one fetched page. NextCursor is empty when no further
// pages exist, which terminates pagination.
type PageResult struct {
	Deals      []Deal
	NextCursor string
}

// HasMore reports whether another page remains.
func (p *PageResult) HasMore() bool {
	return p.NextCursor != ""
}

// response envelopes for the CRM v3 collection endpoints.
type dealsEnvelope struct {
	Results []Deal  `json:"results"`
	Paging  *paging `json:"paging"`
}

type propertiesEnvelope struct {
	Results []PropertyDefinition `json:"results"`
}

type paging struct {
	Next *pagingNext `json:"next"`
}

type pagingNext struct {
	After string `json:"after"`
	Link  string `json:"link,omitempty"`
}
