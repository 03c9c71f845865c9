// Package client provides the SendGrid newsletter API client: a single
// dispatcher that resolves endpoints, injects credentials, retries failed
// exchanges and normalizes responses, plus one thin method per API operation.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/audit"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/cache"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/logging"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for SendGrid client operations.
var (
	sendgridRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_requests_total",
		Help: "Total SendGrid requests by endpoint and status",
	}, []string{"endpoint", "status"})

	sendgridRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sendgrid_request_duration_seconds",
		Help:    "SendGrid call duration in seconds by endpoint, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 120},
	}, []string{"endpoint"})

	sendgridErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_errors_total",
		Help: "Total SendGrid transport errors by class",
	}, []string{"class"})

	sendgridApplicationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_application_errors_total",
		Help: "Total responses carrying an application-level error by endpoint",
	}, []string{"endpoint"})
)

// DefaultBaseURL is the SendGrid API root.
const DefaultBaseURL = "https://api.sendgrid.com"

// Credential parameter names injected into every request body.
const (
	ParamAPIUser = "api_user"
	ParamAPIKey  = "api_key"
)

// Client is the SendGrid newsletter API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *ratelimit.Limiter
	cache      *cache.Manager
	audit      audit.Recorder
	auditFile  io.Closer
	config     Config
	logger     zerolog.Logger
	now        func() time.Time
}

// PollPolicy controls local polling for SendGrid's read-after-write delay.
type PollPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Config holds the client configuration.
type Config struct {
	// Credentials (REQUIRED)
	APIUser string
	APIKey  string

	// BaseURL overrides DefaultBaseURL
	BaseURL string

	// Timeout bounds a single HTTP exchange
	Timeout time.Duration

	// Retry applies to every dispatched call
	Retry RetryPolicy

	// RecipientsPoll applies to AddRecipients while the list is not yet visible
	RecipientsPoll PollPolicy

	// Audit receives every call attempt. When nil, AuditLogPath is opened.
	Audit        audit.Recorder
	AuditLogPath string

	// Rate limiting (0 disables)
	RateLimit float64 // Calls per second
	RateBurst int

	// Caching of read-only lookups (optional)
	Redis    *redis.Client
	CacheTTL time.Duration
}

// DefaultConfig returns the default configuration for the given credentials.
func DefaultConfig(apiUser, apiKey string) Config {
	return Config{
		APIUser:      apiUser,
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		Timeout:      60 * time.Second,
		Retry:        DefaultRetryPolicy(),
		AuditLogPath: audit.DefaultPath,
		RecipientsPoll: PollPolicy{
			Attempts: 10,
			Delay:    30 * time.Second,
		},
		RateLimit: 0,
		RateBurst: 1,
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new SendGrid client.
func New(cfg Config) (*Client, error) {
	if cfg.APIUser == "" || cfg.APIKey == "" {
		return nil, &ConfigurationError{Field: "credentials", Err: ErrMissingCredentials}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &ConfigurationError{Field: "base_url", Err: fmt.Errorf("invalid base url %q", cfg.BaseURL)}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RecipientsPoll.Attempts < 1 {
		cfg.RecipientsPoll.Attempts = 1
	}

	logger := logging.NewLogger(logging.ComponentClient)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: ratelimit.New(cfg.RateLimit, cfg.RateBurst, logger),
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	if cfg.Audit != nil {
		c.audit = cfg.Audit
	} else {
		f, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, err
		}
		c.audit = f
		c.auditFile = f
	}

	return c, nil
}

// Call dispatches a request to a known endpoint. Caller params are merged over
// the credentials. A nil error means the HTTP exchange succeeded; the payload
// may still carry an application error (see Result.AppError).
func (c *Client) Call(ctx context.Context, ep endpoint.Endpoint, params url.Values) (*Result, error) {
	path, ok := ep.Path()
	if !ok {
		return nil, &ConfigurationError{
			Field: "endpoint",
			Err:   fmt.Errorf("%w: %s", ErrUnknownEndpoint, ep),
		}
	}

	name := ep.String()
	target := c.baseURL + path
	callParams := c.buildParams(params)

	startTime := time.Now()
	defer func() {
		sendgridRequestDuration.WithLabelValues(name).Observe(time.Since(startTime).Seconds())
	}()

	if result := c.fromCache(ctx, ep, callParams); result != nil {
		now := c.now()
		c.audit.Record(audit.Entry{
			URL:         target,
			Params:      callParams,
			RequestedAt: now,
			StatusCode:  result.StatusCode,
			Response:    result.Response,
			RespondedAt: now,
			Cached:      true,
		})
		return result, nil
	}

	c.logger.Debug().
		Str("endpoint", name).
		Str("url", target).
		Msg("Executing SendGrid request")

	var result *Result
	err := retryFixed(ctx, c.config.Retry, name, c.logger, func(attempt int) error {
		r, err := c.attempt(ctx, name, target, callParams)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if appErr := result.AppError(); appErr != nil {
		sendgridApplicationErrorsTotal.WithLabelValues(name).Inc()
		c.logger.Warn().
			Str("endpoint", name).
			Int("status", result.StatusCode).
			Str("error", appErr.Message).
			Msg("SendGrid reported application error")
	} else {
		c.toCache(ctx, ep, callParams, result)
	}

	return result, nil
}

// CallNamed dispatches a request by free-form API and action names.
func (c *Client) CallNamed(ctx context.Context, api, action string, params url.Values) (*Result, error) {
	ep, err := endpoint.Lookup(api, action)
	if err != nil {
		return nil, &ConfigurationError{
			Field: "endpoint",
			Err:   fmt.Errorf("%w: %v", ErrUnknownEndpoint, err),
		}
	}
	return c.Call(ctx, ep, params)
}

// buildParams returns the credentials overlaid with the caller's params.
// An empty caller value never replaces a credential.
func (c *Client) buildParams(params url.Values) url.Values {
	out := url.Values{
		ParamAPIUser: {c.config.APIUser},
		ParamAPIKey:  {c.config.APIKey},
	}
	for k, v := range params {
		if isCredential(k) && (len(v) == 0 || v[0] == "") {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

func isCredential(key string) bool {
	return key == ParamAPIUser || key == ParamAPIKey
}

// attempt performs one HTTP exchange and records it in the audit log.
func (c *Client) attempt(ctx context.Context, name, target string, params url.Values) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	entry := audit.Entry{
		URL:         target,
		Params:      params,
		RequestedAt: c.now(),
	}
	result, body, err := c.exchange(ctx, name, target, params)
	entry.RespondedAt = c.now()
	entry.Err = err
	entry.Response = body
	if result != nil {
		entry.StatusCode = result.StatusCode
		entry.Response = result.Response
	}
	c.audit.Record(entry)

	return result, err
}

func (c *Client) exchange(ctx context.Context, name, target string, params url.Values) (*Result, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		sendgridErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		sendgridRequestsTotal.WithLabelValues(name, "network_error").Inc()
		return nil, nil, &TransportError{URL: target, ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		sendgridErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, nil, &TransportError{
			URL:        target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Err:        fmt.Errorf("read body: %w", err),
		}
	}

	status := strconv.Itoa(resp.StatusCode)
	sendgridRequestsTotal.WithLabelValues(name, status).Inc()

	if resp.StatusCode >= 500 {
		sendgridErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return nil, body, &TransportError{
			URL:        target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassServer,
			Err:        errors.New(resp.Status),
		}
	}

	payload, ok := normalizeBody(body)
	if !ok {
		sendgridErrorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, body, &TransportError{
			URL:        target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassParse,
			Err:        errors.New("response is neither JSON nor an HTML error page"),
		}
	}

	return &Result{
		Success:    true,
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Response:   payload,
		endpoint:   name,
	}, body, nil
}

func (c *Client) cacheKey(ep endpoint.Endpoint, params url.Values) cache.Key {
	return cache.Key{
		Account:  c.config.APIUser,
		Endpoint: ep.String(),
		Params:   params,
	}
}

func (c *Client) fromCache(ctx context.Context, ep endpoint.Endpoint, params url.Values) *Result {
	if c.cache == nil || !ep.Cacheable() {
		return nil
	}

	entry, err := c.cache.Get(ctx, c.cacheKey(ep, params))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", ep.String()).Msg("Cache get error")
		}
		return nil
	}

	c.logger.Debug().Str("endpoint", ep.String()).Msg("Serving response from cache")
	return &Result{
		Success:    true,
		StatusCode: entry.StatusCode,
		URL:        entry.URL,
		Response:   entry.Data,
		endpoint:   ep.String(),
	}
}

// toCache stores cacheable results and drops cached lookups of the same API
// group after a successful write.
func (c *Client) toCache(ctx context.Context, ep endpoint.Endpoint, params url.Values, result *Result) {
	if c.cache == nil {
		return
	}

	if ep.Cacheable() {
		entry := &cache.Entry{
			Data:       result.Response,
			StatusCode: result.StatusCode,
			URL:        result.URL,
		}
		if err := c.cache.Set(ctx, c.cacheKey(ep, params), entry); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", ep.String()).Msg("Failed to cache response")
		}
		return
	}

	if !invalidatesCache(ep) {
		return
	}
	group := cache.Key{Account: c.config.APIUser, Endpoint: string(ep.API) + "/"}
	if _, err := c.cache.Invalidate(ctx, group); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", ep.String()).Msg("Failed to invalidate cache")
	}
}

// invalidatesCache reports whether a successful call to ep makes cached
// lookups of its API group stale.
func invalidatesCache(ep endpoint.Endpoint) bool {
	for _, e := range endpoint.All() {
		if e.API == ep.API && e.Cacheable() {
			return true
		}
	}
	return false
}

// Close releases the audit log file, if the client opened one.
func (c *Client) Close() error {
	if c.auditFile == nil {
		return nil
	}
	return c.auditFile.Close()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}
