package cdek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

// Named endpoint keys resolve to URL templates relative to the base URL.
// Calling an unknown key is a configuration error, raised before any
// network traffic.
var endpoints = map[string]string{
	"token":             "oauth/token",
	"orders":            "orders",
	"order_by_uuid":     "orders/%s",
	"calculator_tariff": "calculator/tariff",
	"delivery_points":   "deliverypoints",
	"location_cities":   "location/cities",
	"print_barcodes":    "print/orders/%s",
}

const (
	defaultTimeout = 10 * time.Second

	// Transport retry budget: 3 retries after the initial attempt,
	// exponential backoff starting at 0.5s.
	transportMaxTries   = 4
	transportBaseDelay  = 500 * time.Millisecond
	retryableStatusFrom = 500
)

// HTTPAPIClient is the production implementation of APIClient.
// It owns the base URL, the client-credentials pair and a bearer token
// cached for the lifetime of the instance. The token slot is guarded by a
// mutex, but the client is single-tenant: do not share one instance across
// unrelated credential contexts.
type HTTPAPIClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu    sync.Mutex
	token string
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
// Missing credentials or base URL are rejected here, before any request.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) (*HTTPAPIClient, error) {
	if cfg.BaseURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, shipper.NewError(carrierName, shipper.KindConfiguration,
			"API credentials or base URL are not configured")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &HTTPAPIClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/") + "/",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ============================================================================
// Token handling
// ============================================================================

// Authenticate performs the client-credentials exchange and caches the
// resulting bearer token. It is called lazily on the first request and
// again when a 401 invalidates the cached token.
func (c *HTTPAPIClient) Authenticate(ctx context.Context) error {
	endpoint, err := c.resolveEndpoint("token")
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	res, err := c.perform(ctx, http.MethodPost, endpoint,
		"application/x-www-form-urlencoded", []byte(form.Encode()), nil)
	if err != nil {
		return err
	}
	if res.status != http.StatusOK {
		return c.statusError(res)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(res.body, &tok); err != nil {
		return shipper.NewError(carrierName, shipper.KindAuth,
			"malformed token response").WithCause(err)
	}
	if tok.AccessToken == "" {
		return shipper.NewError(carrierName, shipper.KindAuth,
			"access token not found in response")
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.mu.Unlock()
	return nil
}

func (c *HTTPAPIClient) cachedToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *HTTPAPIClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *HTTPAPIClient) ensureToken(ctx context.Context) error {
	if c.cachedToken() != "" {
		return nil
	}
	return c.Authenticate(ctx)
}

// ============================================================================
// Request pipeline
// ============================================================================

type httpResult struct {
	status      int
	contentType string
	body        []byte
}

// retryableStatusError carries a 5xx result through the retry loop so the
// final response is still available after the budget is exhausted.
type retryableStatusError struct {
	result *httpResult
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.result.status)
}

func (c *HTTPAPIClient) resolveEndpoint(key string, params ...any) (string, error) {
	template, ok := endpoints[key]
	if !ok {
		return "", shipper.NewError(carrierName, shipper.KindConfiguration,
			fmt.Sprintf("unknown endpoint key: %s", key))
	}
	return fmt.Sprintf(template, params...), nil
}

// perform executes one HTTP exchange with the transport retry policy.
// Connection failures, timeouts and 5xx statuses are retried; every other
// status is returned to the caller as-is.
func (c *HTTPAPIClient) perform(ctx context.Context, method, endpoint, contentType string, body []byte, query url.Values) (*httpResult, error) {
	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + query.Encode()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = transportBaseDelay

	operation := func() (*httpResult, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if token := c.cachedToken(); token != "" && endpoint != endpoints["token"] {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err // transport failure, retryable
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		res := &httpResult{
			status:      resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
			body:        data,
		}
		if res.status >= retryableStatusFrom {
			return nil, &retryableStatusError{result: res}
		}
		return res, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(transportMaxTries))
	if err != nil {
		var rs *retryableStatusError
		if errors.As(err, &rs) {
			// 5xx survived the retry budget: hand the response back so the
			// caller can extract a provider error from the body.
			return rs.result, nil
		}
		return nil, shipper.NewError(carrierName, shipper.KindTransport,
			fmt.Sprintf("%s %s failed", method, fullURL)).WithCause(err)
	}
	return res, nil
}

// do performs one named-endpoint call, handling auth, the single 401
// reauthentication retry, envelope unwrapping and provider error
// normalization. The returned bytes are either the entity payload, the
// full JSON body, or raw binary content.
func (c *HTTPAPIClient) do(ctx context.Context, method, endpointKey string, params []any, query url.Values, payload any) ([]byte, error) {
	endpoint, err := c.resolveEndpoint(endpointKey, params...)
	if err != nil {
		return nil, err
	}

	var body []byte
	contentType := ""
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, shipper.NewError(carrierName, shipper.KindProtocol,
				"failed to encode request body").WithCause(err)
		}
		contentType = "application/json"
	}

	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	res, err := c.perform(ctx, method, endpoint, contentType, body, query)
	if err != nil {
		return nil, err
	}

	if res.status == http.StatusUnauthorized {
		// The cached token went stale. Reauthenticate and retry the whole
		// request exactly once; a second 401 is fatal.
		c.invalidateToken()
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		res, err = c.perform(ctx, method, endpoint, contentType, body, query)
		if err != nil {
			return nil, err
		}
		if res.status == http.StatusUnauthorized {
			return nil, c.statusError(res)
		}
	}

	if res.status < 200 || res.status > 299 {
		return nil, c.statusError(res)
	}

	if isBinaryContent(res.contentType) {
		return res.body, nil
	}

	return c.unwrapEnvelope(endpointKey, res.body)
}

func isBinaryContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, binary := range []string{
		"application/pdf", "application/zpl", "application/octet-stream", "text/plain",
	} {
		if strings.HasPrefix(ct, binary) {
			return true
		}
	}
	return false
}

// responseEnvelope covers every JSON shape the provider responds with:
// errors at the top level, errors nested under requests[0], or a single
// resource wrapped under "entity".
type responseEnvelope struct {
	Entity   json.RawMessage `json:"entity"`
	Errors   []apiError      `json:"errors"`
	Requests []struct {
		Errors []apiError `json:"errors"`
	} `json:"requests"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// unwrapEnvelope normalizes a successful JSON body. A provider-reported
// error list is fatal for the call even on a 2xx status: there is no
// partial success.
func (c *HTTPAPIClient) unwrapEnvelope(endpointKey string, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}

	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		// List responses and the calculator body do not decode into a
		// map envelope; return them untouched.
		return body, nil
	}

	if entries := env.errorEntries(); len(entries) > 0 {
		return nil, shipper.NewError(carrierName, shipper.KindProtocol,
			"provider reported errors").WithEntries(entries)
	}

	// The calculator endpoint has its own envelope shape: the payload is
	// the full body.
	if endpointKey == "calculator_tariff" {
		return body, nil
	}

	if len(env.Entity) > 0 {
		return env.Entity, nil
	}
	return body, nil
}

func (env *responseEnvelope) errorEntries() []shipper.ErrorEntry {
	raw := env.Errors
	if len(raw) == 0 && len(env.Requests) > 0 {
		raw = env.Requests[0].Errors
	}
	if len(raw) == 0 {
		return nil
	}
	entries := make([]shipper.ErrorEntry, len(raw))
	for i, e := range raw {
		entries[i] = shipper.ErrorEntry{Code: e.Code, Message: e.Message, Field: e.Field}
	}
	return entries
}

// statusError converts a non-2xx response into the normalized error shape,
// preferring the provider's own error entries over the raw status text.
func (c *HTTPAPIClient) statusError(res *httpResult) error {
	var env responseEnvelope
	if err := json.Unmarshal(res.body, &env); err == nil {
		if entries := env.errorEntries(); len(entries) > 0 {
			return shipper.NewError(carrierName, shipper.KindProtocol,
				"provider reported errors").
				WithStatusCode(res.status).
				WithEntries(entries)
		}
	}
	return shipper.NewError(carrierName, shipper.KindProtocol,
		strings.TrimSpace(string(res.body))).
		WithStatusCode(res.status)
}

// ============================================================================
// APIClient implementation
// ============================================================================

// CalculateTariff requests a tariff calculation.
func (c *HTTPAPIClient) CalculateTariff(ctx context.Context, req *TariffRequest) (*TariffResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "calculator_tariff", nil, nil, req)
	if err != nil {
		return nil, err
	}
	var resp TariffResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.decodeError(err)
	}
	return &resp, nil
}

// CreateOrder registers an order.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderEntity, error) {
	body, err := c.do(ctx, http.MethodPost, "orders", nil, nil, req)
	if err != nil {
		return nil, err
	}
	var entity OrderEntity
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, c.decodeError(err)
	}
	return &entity, nil
}

// GetOrder fetches an order by UUID.
func (c *HTTPAPIClient) GetOrder(ctx context.Context, orderUUID string) (*OrderEntity, error) {
	body, err := c.do(ctx, http.MethodGet, "order_by_uuid", []any{orderUUID}, nil, nil)
	if err != nil {
		return nil, err
	}
	var entity OrderEntity
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, c.decodeError(err)
	}
	return &entity, nil
}

// DeliveryPoints lists pickup points for the filter.
func (c *HTTPAPIClient) DeliveryPoints(ctx context.Context, filter *DeliveryPointsFilter) ([]DeliveryPoint, error) {
	query := url.Values{}
	if filter != nil {
		for _, cc := range filter.CountryCodes {
			query.Add("country_code", cc)
		}
		if filter.CityCode != 0 {
			query.Set("city_code", fmt.Sprintf("%d", filter.CityCode))
		}
		if filter.Type != "" {
			query.Set("type", filter.Type)
		}
	}

	body, err := c.do(ctx, http.MethodGet, "delivery_points", nil, query, nil)
	if err != nil {
		return nil, err
	}
	var points []DeliveryPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, c.decodeError(err)
	}
	return points, nil
}

// Cities looks up cities in the location catalogue.
func (c *HTTPAPIClient) Cities(ctx context.Context, filter *CityFilter) ([]City, error) {
	query := url.Values{}
	if filter != nil {
		for _, cc := range filter.CountryCodes {
			query.Add("country_codes", cc)
		}
		if filter.Query != "" {
			query.Set("city", filter.Query)
		}
		if filter.Size > 0 {
			query.Set("size", fmt.Sprintf("%d", filter.Size))
		}
	}

	body, err := c.do(ctx, http.MethodGet, "location_cities", nil, query, nil)
	if err != nil {
		return nil, err
	}
	var cities []City
	if err := json.Unmarshal(body, &cities); err != nil {
		return nil, c.decodeError(err)
	}
	return cities, nil
}

// GetLabel retrieves raw label bytes for an order.
func (c *HTTPAPIClient) GetLabel(ctx context.Context, orderUUID string, format string) ([]byte, error) {
	query := url.Values{}
	query.Set("format", strings.ToLower(format))
	return c.do(ctx, http.MethodGet, "print_barcodes", []any{orderUUID}, query, nil)
}

func (c *HTTPAPIClient) decodeError(err error) error {
	return shipper.NewError(carrierName, shipper.KindProtocol,
		"failed to decode provider response").WithCause(err)
}

var _ APIClient = (*HTTPAPIClient)(nil)
