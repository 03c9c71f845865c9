package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/internal/testutil"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/audit"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// newTestClient creates a client pointed at mock with fast retries.
func newTestClient(t *testing.T, mock *testutil.MockSendGrid) (*Client, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	cfg := DefaultConfig("test-user", "test-key")
	cfg.BaseURL = mock.URL()
	cfg.Retry = RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond, Retryable: RetryTransport}
	cfg.RecipientsPoll = PollPolicy{Attempts: 3, Delay: time.Millisecond}
	cfg.Audit = audit.New(buf)

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, buf
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		field       string
	}{
		{
			name: "valid config",
			config: Config{
				APIUser: "user",
				APIKey:  "key",
				Audit:   audit.Discard,
			},
		},
		{
			name:        "missing api user",
			config:      Config{APIKey: "key", Audit: audit.Discard},
			expectError: true,
			field:       "credentials",
		},
		{
			name:        "missing api key",
			config:      Config{APIUser: "user", Audit: audit.Discard},
			expectError: true,
			field:       "credentials",
		},
		{
			name: "invalid base url",
			config: Config{
				APIUser: "user",
				APIKey:  "key",
				BaseURL: "not a url",
				Audit:   audit.Discard,
			},
			expectError: true,
			field:       "base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)

			if tt.expectError {
				var ce *ConfigurationError
				if !errors.As(err, &ce) {
					t.Fatalf("New() error = %v, want ConfigurationError", err)
				}
				if ce.Field != tt.field {
					t.Errorf("Field = %q, want %q", ce.Field, tt.field)
				}
				return
			}

			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if c.baseURL != DefaultBaseURL {
				t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
			}
		})
	}
}

func TestNew_OpensAuditFile(t *testing.T) {
	cfg := DefaultConfig("user", "key")
	cfg.AuditLogPath = filepath.Join(t.TempDir(), "calls.log")

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.auditFile == nil {
		t.Error("expected client to own the audit file")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("user", "key")

	if cfg.BaseURL != "https://api.sendgrid.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Delay != 30*time.Second {
		t.Errorf("Retry.Delay = %v, want 30s", cfg.Retry.Delay)
	}
	if cfg.RecipientsPoll.Attempts != 10 || cfg.RecipientsPoll.Delay != 30*time.Second {
		t.Errorf("RecipientsPoll = %+v, want 10 attempts / 30s", cfg.RecipientsPoll)
	}
	if cfg.AuditLogPath != audit.DefaultPath {
		t.Errorf("AuditLogPath = %q, want %q", cfg.AuditLogPath, audit.DefaultPath)
	}
}

func TestCall_ResolvesEveryEndpoint(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	for _, ep := range endpoint.All() {
		t.Run(ep.String(), func(t *testing.T) {
			mock.Reset()

			result, err := c.Call(context.Background(), ep, nil)
			if err != nil {
				t.Fatalf("Call() error: %v", err)
			}

			path, _ := ep.Path()
			if result.URL != mock.URL()+path {
				t.Errorf("URL = %q, want %q", result.URL, mock.URL()+path)
			}
			reqs := mock.Requests()
			if len(reqs) != 1 {
				t.Fatalf("requests = %d, want 1", len(reqs))
			}
			if reqs[0].Method != http.MethodPost {
				t.Errorf("Method = %s, want POST", reqs[0].Method)
			}
		})
	}
}

func TestCall_UnknownEndpoint(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, buf := newTestClient(t, mock)

	_, err := c.Call(context.Background(), endpoint.Endpoint{API: "newsletter", Action: "publish"}, nil)

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("Call() error = %v, want ConfigurationError", err)
	}
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("expected ErrUnknownEndpoint, got %v", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.GetRequestCount())
	}
	if buf.Len() != 0 {
		t.Error("unknown endpoint should not be audited")
	}
}

func TestCallNamed(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	if _, err := c.CallNamed(context.Background(), "lists", "add", url.Values{"list": {"x"}}); err != nil {
		t.Fatalf("CallNamed() error: %v", err)
	}

	_, err := c.CallNamed(context.Background(), "templates", "add", nil)
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("CallNamed() error = %v, want ErrUnknownEndpoint", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.GetRequestCount())
	}
}

func TestCall_CredentialsMerged(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	params := url.Values{"name": {"weekly"}, "subject": {"Hello"}}
	if _, err := c.Call(context.Background(), endpoint.NewsletterGet, params); err != nil {
		t.Fatalf("Call() error: %v", err)
	}

	form := mock.Requests()[0].Form
	want := map[string]string{
		"api_user": "test-user",
		"api_key":  "test-key",
		"name":     "weekly",
		"subject":  "Hello",
	}
	for k, v := range want {
		if got := form.Get(k); got != v {
			t.Errorf("form[%q] = %q, want %q", k, got, v)
		}
	}

	// caller params are not mutated
	if params.Get("api_key") != "" {
		t.Error("caller params must not receive credentials")
	}
}

func TestCall_EmptyCredentialOverrideIgnored(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"empty slice", url.Values{"api_key": {}, "api_user": {}}},
		{"empty string", url.Values{"api_key": {""}, "api_user": {""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockSendGrid()
			defer mock.Close()
			c, _ := newTestClient(t, mock)

			if _, err := c.Call(context.Background(), endpoint.ListsGet, tt.params); err != nil {
				t.Fatalf("Call() error: %v", err)
			}

			form := mock.Requests()[0].Form
			if got := form.Get("api_key"); got != "test-key" {
				t.Errorf("api_key = %q, want %q", got, "test-key")
			}
			if got := form.Get("api_user"); got != "test-user" {
				t.Errorf("api_user = %q, want %q", got, "test-user")
			}
		})
	}
}

func TestCall_CallerWinsOnCollision(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	_, err := c.Call(context.Background(), endpoint.SubuserList, url.Values{"api_user": {"subuser"}})
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}

	form := mock.Requests()[0].Form
	if form.Get("api_user") != "subuser" {
		t.Errorf("api_user = %q, want subuser", form.Get("api_user"))
	}
	if form.Get("api_key") != "test-key" {
		t.Errorf("api_key = %q, want test-key", form.Get("api_key"))
	}
}

func TestCall_HTMLTitleFallback(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	mock.SetResponse("/api/newsletter/get.json", testutil.NewHTMLErrorResponse(http.StatusNotFound, "Not Found"))

	result, err := c.GetNewsletter(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetNewsletter() error: %v", err)
	}

	if !result.Success {
		t.Error("Success = false, want true")
	}
	if result.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", result.StatusCode)
	}

	var payload map[string]string
	if err := json.Unmarshal(result.Response, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["error"] != "Not Found" {
		t.Errorf("payload = %v, want error=Not Found", payload)
	}
	if appErr := result.AppError(); appErr == nil || appErr.Message != "Not Found" {
		t.Errorf("AppError() = %v, want Not Found", appErr)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (no retry)", mock.GetRequestCount())
	}
}

func TestCall_ApplicationErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	mock.SetResponse("/api/newsletter/lists/add.json", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"message": "error", "errors": ["List already exists"]}`,
	})

	result, err := c.AddList(context.Background(), "dup")
	if err != nil {
		t.Fatalf("AddList() error: %v", err)
	}
	if !result.Success || result.StatusCode != http.StatusBadRequest {
		t.Errorf("result = %+v, want success with status 400", result)
	}
	appErr := result.AppError()
	if appErr == nil || appErr.Message != "List already exists" {
		t.Errorf("AppError() = %v", appErr)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.GetRequestCount())
	}
}

func TestCall_SucceedsOnFifthAttempt(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	failure := testutil.NewServerErrorResponse()
	mock.SetSequence("/api/unsubscribes.get.json",
		failure, failure, failure, failure,
		testutil.NewJSONResponse(`[{"email":"a@example.com"}]`),
	)

	result, err := c.GetUnsubscribes(context.Background())
	if err != nil {
		t.Fatalf("GetUnsubscribes() error: %v", err)
	}
	if !result.IsList() {
		t.Errorf("Response = %s, want list", result.Response)
	}
	if mock.GetRequestCount() != 5 {
		t.Errorf("requests = %d, want 5", mock.GetRequestCount())
	}
}

func TestCall_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	mock.SetResponse("/api/unsubscribes.get.json", testutil.NewServerErrorResponse())

	_, err := c.GetUnsubscribes(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if te.ErrorClass != ErrorClassServer {
		t.Errorf("ErrorClass = %q, want server", te.ErrorClass)
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted, got %v", err)
	}
	if mock.GetRequestCount() != 5 {
		t.Errorf("requests = %d, want 5", mock.GetRequestCount())
	}
}

func TestCall_UnparsableBodyRetried(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	mock.SetSequence("/api/newsletter/list.json",
		testutil.NewGarbageResponse(),
		testutil.NewJSONResponse(`[]`),
	)

	if _, err := c.ListNewsletters(context.Background(), ""); err != nil {
		t.Fatalf("ListNewsletters() error: %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.GetRequestCount())
	}
}

func TestCall_NetworkError(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	c, _ := newTestClient(t, mock)
	c.config.Retry.MaxAttempts = 2
	mock.Close()

	_, err := c.GetUnsubscribes(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if te.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", te.ErrorClass)
	}
}

func TestCall_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetUnsubscribes(ctx)
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
}

func TestCall_AuditsEveryAttempt(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, buf := newTestClient(t, mock)

	mock.SetSequence("/api/unsubscribes.add.json",
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(`{"message": "success"}`),
	)

	if _, err := c.AddUnsubscribe(context.Background(), "a@example.com"); err != nil {
		t.Fatalf("AddUnsubscribe() error: %v", err)
	}

	lines := 0
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		lines++
	}
	if lines != 4 {
		t.Errorf("audit lines = %d, want 4 (two attempts)", lines)
	}
	if strings.Contains(buf.String(), "test-key") {
		t.Error("audit log must not contain the api key")
	}
	if !strings.Contains(buf.String(), "a@example.com") {
		t.Error("audit log should contain request params")
	}
}

// countingTransport counts round trips before delegating.
type countingTransport struct {
	n int
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.n++
	return http.DefaultTransport.RoundTrip(req)
}

func TestSetHTTPClient(t *testing.T) {
	mock := testutil.NewMockSendGrid()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	transport := &countingTransport{}
	c.SetHTTPClient(&http.Client{Transport: transport})

	if _, err := c.GetLists(context.Background(), ""); err != nil {
		t.Fatalf("GetLists() error: %v", err)
	}
	if transport.n != 1 {
		t.Errorf("round trips = %d, want 1", transport.n)
	}
}

func TestConfig_EffectiveDefaults(t *testing.T) {
	c, err := New(Config{APIUser: "u", APIKey: "k", Audit: audit.Discard})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	cfg := c.Config()
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.RecipientsPoll.Attempts != 1 {
		t.Errorf("RecipientsPoll.Attempts = %d, want 1", cfg.RecipientsPoll.Attempts)
	}
	if cfg.APIUser != "u" {
		t.Errorf("APIUser = %q, want u", cfg.APIUser)
	}
}
