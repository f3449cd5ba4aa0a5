package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached response by API path and query parameters.
type Key struct {
	// Path is the API path (e.g. "/crm/v3/properties/deals").
	Path string

	// Query are the request's query parameters.
	Query url.Values
}

// String generates a deterministic cache key.
// Format: hubspot:cache:<path>:param1=val1:param2=val2
func (k Key) String() string {
	parts := []string{"hubspot", "cache"}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Query.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
