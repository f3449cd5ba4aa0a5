package diagnostics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dealsync/hubspot-deals-client/pkg/client"
	"github.com/dealsync/hubspot-deals-client/pkg/deals"
	"github.com/dealsync/hubspot-deals-client/pkg/ratelimit"
)

// hubspotStub serves the three endpoints the diagnostics sequence
// touches and counts requests per path.
type hubspotStub struct {
	mu           sync.Mutex
	calls        map[string]int
	validToken   string
	usageHeaders map[string]string
	accountDown  bool
	dealsDown    bool
}

func newHubspotStub(validToken string) *hubspotStub {
	return &hubspotStub{
		calls:      make(map[string]int),
		validToken: validToken,
	}
}

func (s *hubspotStub) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *hubspotStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+s.validToken {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"category": "INVALID_AUTHENTICATION"}`))
		return
	}

	switch r.URL.Path {
	case "/crm/v3/properties/deals":
		for name, value := range s.usageHeaders {
			w.Header().Set(name, value)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"results": [{"name": "dealname", "label": "Deal Name", "type": "string"}]}`))
	case "/integrations/v1/me":
		if s.accountDown {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"portalId": 12345, "timeZone": "US/Eastern", "currency": "USD", "accountType": "STANDARD"}`))
	case "/crm/v3/objects/deals":
		if s.dealsDown {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"results": [{"id": "1", "properties": {"dealname": "Probe"}}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestChecker(t *testing.T, serverURL string) *Checker {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = serverURL
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return NewChecker(c, deals.NewFetcher(c))
}

func TestValidateCredentials(t *testing.T) {
	stub := newHubspotStub("good-token")
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)
	ctx := context.Background()

	valid, err := ch.ValidateCredentials(ctx, "good-token")
	if err != nil {
		t.Fatalf("ValidateCredentials failed: %v", err)
	}
	if !valid {
		t.Error("valid token reported invalid")
	}

	valid, err = ch.ValidateCredentials(ctx, "bad-token")
	if err != nil {
		t.Fatalf("ValidateCredentials failed: %v", err)
	}
	if valid {
		t.Error("invalid token reported valid")
	}
}

func TestValidateCredentials_TransportFailure(t *testing.T) {
	ch := newTestChecker(t, "http://localhost:1")

	valid, err := ch.ValidateCredentials(context.Background(), "tok")
	if err == nil {
		t.Error("Expected transport error to surface")
	}
	if valid {
		t.Error("transport failure must report invalid")
	}
}

func TestGetAccountInfo(t *testing.T) {
	stub := newHubspotStub("good-token")
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	info, err := ch.GetAccountInfo(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if info == nil {
		t.Fatal("info is nil, want account map")
	}
	if info["currency"] != "USD" {
		t.Errorf("currency = %v, want USD", info["currency"])
	}
	if info["portalId"] != float64(12345) {
		t.Errorf("portalId = %v, want 12345", info["portalId"])
	}
}

func TestGetAccountInfo_NonOKIsAbsent(t *testing.T) {
	stub := newHubspotStub("good-token")
	stub.accountDown = true
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	info, err := ch.GetAccountInfo(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("non-200 must degrade to absent, got error: %v", err)
	}
	if info != nil {
		t.Errorf("info = %v, want nil for unavailable endpoint", info)
	}
}

func TestGetAPIUsage(t *testing.T) {
	stub := newHubspotStub("good-token")
	stub.usageHeaders = map[string]string{
		ratelimit.HeaderDailyRemaining:    "98765",
		ratelimit.HeaderRemaining:         "87",
		ratelimit.HeaderSecondlyRemaining: "9",
	}
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	snapshot, err := ch.GetAPIUsage(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("GetAPIUsage failed: %v", err)
	}
	if snapshot == nil {
		t.Fatal("snapshot is nil, want captured headers")
	}
	if len(snapshot.Headers) != 3 {
		t.Errorf("captured %d headers, want exactly the 3 present", len(snapshot.Headers))
	}
	if got, ok := snapshot.Get(ratelimit.HeaderDailyRemaining); !ok || got != "98765" {
		t.Errorf("daily remaining = %q (present=%v), want 98765", got, ok)
	}
}

func TestGetAPIUsage_NonOKIsAbsent(t *testing.T) {
	// HubSpot attaches usage headers to error responses too; only a 200
	// counts as a usable usage reading.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ratelimit.HeaderDailyRemaining, "100")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"category": "INVALID_AUTHENTICATION"}`))
	}))
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	snapshot, err := ch.GetAPIUsage(context.Background(), "bad-token")
	if err != nil {
		t.Fatalf("non-200 must degrade to absent, got error: %v", err)
	}
	if snapshot != nil {
		t.Errorf("snapshot = %+v, want nil for a 401 response", snapshot)
	}
}

func TestGetAPIUsage_NoHeadersIsAbsent(t *testing.T) {
	stub := newHubspotStub("good-token")
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	snapshot, err := ch.GetAPIUsage(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("GetAPIUsage failed: %v", err)
	}
	if snapshot != nil {
		t.Errorf("snapshot = %+v, want nil when no usage headers present", snapshot)
	}
}

func TestTestConnection_InvalidToken(t *testing.T) {
	stub := newHubspotStub("good-token")
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	report := ch.TestConnection(context.Background(), "bad-token")

	if report.TokenValid || report.APIReachable || report.DataAccessible {
		t.Errorf("invalid token must yield all-false report, got %+v", report)
	}
	if report.AccountInfo != nil || report.UsageInfo != nil {
		t.Error("invalid token must yield absent account and usage info")
	}
	if report.Error != "" {
		t.Errorf("Error = %q, want empty (invalid token is not an orchestration fault)", report.Error)
	}

	// Only the validation call may have gone out.
	if n := stub.callCount("/integrations/v1/me"); n != 0 {
		t.Errorf("account endpoint called %d times, want 0", n)
	}
	if n := stub.callCount("/crm/v3/objects/deals"); n != 0 {
		t.Errorf("deals endpoint called %d times, want 0", n)
	}
	if n := stub.callCount("/crm/v3/properties/deals"); n != 1 {
		t.Errorf("properties endpoint called %d times, want exactly the validation call", n)
	}
}

func TestTestConnection_Healthy(t *testing.T) {
	stub := newHubspotStub("good-token")
	stub.usageHeaders = map[string]string{
		ratelimit.HeaderDaily:          "250000",
		ratelimit.HeaderDailyRemaining: "249000",
	}
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	report := ch.TestConnection(context.Background(), "good-token")

	if !report.TokenValid {
		t.Error("TokenValid = false, want true")
	}
	if !report.APIReachable {
		t.Error("APIReachable = false, want true")
	}
	if !report.DataAccessible {
		t.Error("DataAccessible = false, want true")
	}
	if report.AccountInfo == nil {
		t.Error("AccountInfo is nil, want account map")
	}
	if report.UsageInfo == nil {
		t.Error("UsageInfo is nil, want usage snapshot")
	}
	if report.Error != "" {
		t.Errorf("Error = %q, want empty", report.Error)
	}
}

func TestTestConnection_DegradesPerStep(t *testing.T) {
	stub := newHubspotStub("good-token")
	stub.accountDown = true
	stub.dealsDown = true
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	report := ch.TestConnection(context.Background(), "good-token")

	// Validation succeeded, so the token and API fields stand even
	// though the later probes failed.
	if !report.TokenValid || !report.APIReachable {
		t.Errorf("report = %+v, want token valid and API reachable", report)
	}
	if report.DataAccessible {
		t.Error("DataAccessible = true, want false when deal probe fails")
	}
	if report.AccountInfo != nil {
		t.Error("AccountInfo should be absent when the account endpoint is down")
	}
	if report.Error != "" {
		t.Errorf("Error = %q, want empty (sub-step failures are swallowed)", report.Error)
	}

	// The failing steps were still attempted, not skipped.
	if n := stub.callCount("/integrations/v1/me"); n != 1 {
		t.Errorf("account endpoint called %d times, want 1", n)
	}
	if n := stub.callCount("/crm/v3/objects/deals"); n != 1 {
		t.Errorf("deals endpoint called %d times, want 1", n)
	}
}

func TestTestConnection_ContextCancelled(t *testing.T) {
	stub := newHubspotStub("good-token")
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := ch.TestConnection(ctx, "good-token")
	if report == nil {
		t.Fatal("TestConnection must always return a report")
	}
	if report.Error == "" {
		t.Error("Error should record the cancellation")
	}
	if report.DataAccessible {
		t.Error("cancelled run must not report data access")
	}
}

func TestTestConnection_ReportIsJSONSerializable(t *testing.T) {
	stub := newHubspotStub("good-token")
	stub.usageHeaders = map[string]string{ratelimit.HeaderRemaining: "99"}
	server := httptest.NewServer(stub)
	defer server.Close()

	ch := newTestChecker(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report := ch.TestConnection(ctx, "good-token")
	if !report.DataAccessible {
		t.Fatalf("unexpected degraded report: %+v", report)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Failed to marshal report: %v", err)
	}
	if !strings.Contains(string(data), `"token_valid":true`) {
		t.Errorf("serialized report missing token_valid field: %s", data)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("empty error field should be omitted: %s", data)
	}
}
