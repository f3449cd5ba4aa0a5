// Package testutil provides testing utilities for the HubSpot deals client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock HubSpot endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockHubSpot is a configurable mock HubSpot API server for testing.
type MockHubSpot struct {
	server        *httptest.Server
	mu            sync.RWMutex
	handlers      map[string]func(w http.ResponseWriter, r *http.Request)
	requiredToken string

	// Tracking
	RequestCount      int
	AuthFailures      int
	LastRequestHeader http.Header
	LastRequestQuery  map[string][]string
}

// NewMockHubSpot creates a new mock HubSpot server.
func NewMockHubSpot() *MockHubSpot {
	mock := &MockHubSpot{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestQuery = r.URL.Query()
		token := mock.requiredToken
		mock.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			mock.mu.Lock()
			mock.AuthFailures++
			mock.mu.Unlock()
			w.Header().Set("Content-Type", "application/json;charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status": "error", "category": "INVALID_AUTHENTICATION"}`))
			return
		}

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockHubSpot) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHubSpot) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockHubSpot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.AuthFailures = 0
	m.LastRequestHeader = nil
	m.LastRequestQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockHubSpot) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockHubSpot) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDealsResponse configures the paginated deals collection endpoint.
func (m *MockHubSpot) SetDealsResponse(resp MockResponse) {
	m.SetResponse("/crm/v3/objects/deals", resp)
}

// SetDealResponse configures the single-deal endpoint for a given id.
func (m *MockHubSpot) SetDealResponse(dealID string, resp MockResponse) {
	m.SetResponse(fmt.Sprintf("/crm/v3/objects/deals/%s", dealID), resp)
}

// SetPropertiesResponse configures the deal properties schema endpoint.
func (m *MockHubSpot) SetPropertiesResponse(resp MockResponse) {
	m.SetResponse("/crm/v3/properties/deals", resp)
}

// SetAccountResponse configures the account info endpoint.
func (m *MockHubSpot) SetAccountResponse(resp MockResponse) {
	m.SetResponse("/integrations/v1/me", resp)
}

// RequireAuth makes the server reject any request not carrying the
// given bearer token with a 401. Rejections count toward AuthFailures.
func (m *MockHubSpot) RequireAuth(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requiredToken = token
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockHubSpot) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetAuthFailures returns the number of rejected bearer tokens.
func (m *MockHubSpot) GetAuthFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AuthFailures
}

// defaultHandler provides default HubSpot-like responses.
func (m *MockHubSpot) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.Header().Set("X-HubSpot-RateLimit-Daily", "250000")
	w.Header().Set("X-HubSpot-RateLimit-Daily-Remaining", "249999")
	w.Header().Set("X-HubSpot-RateLimit-Remaining", "99")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"results": []}`))
}

// NewHealthyResponse creates a standard 200 OK response with HubSpot usage headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type":                              "application/json;charset=utf-8",
			"X-HubSpot-RateLimit-Daily":                 "250000",
			"X-HubSpot-RateLimit-Daily-Remaining":       "249000",
			"X-HubSpot-RateLimit-Interval-Milliseconds": "10000",
			"X-HubSpot-RateLimit-Max":                   "100",
			"X-HubSpot-RateLimit-Remaining":             "95",
			"X-HubSpot-RateLimit-Secondly":              "10",
			"X-HubSpot-RateLimit-Secondly-Remaining":    "9",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response whose
// interval header tells the client how long to wait before retrying.
func NewRateLimitResponse(intervalMs string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": "error", "category": "RATE_LIMITS", "message": "You have reached your rate limit"}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
			"X-HubSpot-RateLimit-Interval-Milliseconds": intervalMs,
			"X-HubSpot-RateLimit-Remaining":             "0",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status": "error", "message": "internal error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 response for a missing deal.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status": "error", "category": "OBJECT_NOT_FOUND"}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// DealPageBody builds a deals collection page with the given ids and an
// optional next cursor.
func DealPageBody(nextCursor string, ids ...string) string {
	body := `{"results": [`
	for i, id := range ids {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id": %q, "properties": {"dealname": "Deal %s", "amount": "1000"}}`, id, id)
	}
	body += `]`
	if nextCursor != "" {
		body += fmt.Sprintf(`, "paging": {"next": {"after": %q}}`, nextCursor)
	}
	body += `}`
	return body
}

// AccountInfoBody is a typical account info payload.
const AccountInfoBody = `{"portalId": 62515, "timeZone": "US/Eastern", "currency": "USD", "utcOffset": "-05:00", "accountType": "STANDARD"}`

// PropertiesBody is a minimal deal properties schema payload.
const PropertiesBody = `{"results": [
	{"name": "dealname", "label": "Deal Name", "type": "string", "fieldType": "text", "groupName": "dealinformation"},
	{"name": "amount", "label": "Amount", "type": "number", "fieldType": "number", "groupName": "dealinformation"},
	{"name": "dealstage", "label": "Deal Stage", "type": "enumeration", "fieldType": "radio", "groupName": "dealinformation"}
]}`

// NewFlakyHandler creates a handler that returns a 429 with the given
// interval for the first n requests and then succeeds with body.
func NewFlakyHandler(n int, intervalMs string, body string) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	attempts := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		if current <= n {
			w.Header().Set("X-HubSpot-RateLimit-Interval-Milliseconds", intervalMs)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"status": "error", "category": "RATE_LIMITS"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}
