package wialon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultScheme is used when no scheme is configured
	DefaultScheme = "https"
	// DefaultHost is the Wialon Hosting Remote API host
	DefaultHost = "hst-api.wialon.com"
	// DefaultTimeout is the per-request timeout of the default HTTP client
	DefaultTimeout = 30 * time.Second

	ajaxPath          = "/wialon/ajax.html"
	developmentPrefix = "/dev"

	// MaxResponseLength caps how much of a response body is read
	MaxResponseLength = 32 << 20
)

// HTTPDoer performs HTTP requests. *http.Client satisfies it.
//
//go:generate mockgen -destination=../mocks/http_doer.go -package=mocks -mock_names=HTTPDoer=HTTPDoer . HTTPDoer
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Wialon Remote API client.
//
// A Client holds mutable session state and is not safe for concurrent use.
// Callers sharing one Client between goroutines must synchronize access.
type Client struct {
	scheme      string
	host        string
	port        int
	development bool
	method      string
	userAgent   string
	geocodeURL  string
	timeout     time.Duration
	extraParams map[string]any

	sessionID string
	userID    int64

	httpClient HTTPDoer
	logger     zerolog.Logger
}

// sessionFree lists services that may be called without a session
var sessionFree = map[string]bool{
	"token/login":        true,
	"core/login":         true,
	"core/use_auth_hash": true,
}

// NewClient creates a new Wialon client. No request is made until the first call.
func NewClient(logger zerolog.Logger, opts ...Option) (*Client, error) {
	client := &Client{
		scheme:     DefaultScheme,
		host:       DefaultHost,
		method:     http.MethodPost,
		userAgent:  "wialon-go",
		geocodeURL: DefaultGeocodeURL,
		timeout:    DefaultTimeout,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validate(); err != nil {
		return nil, err
	}

	if client.httpClient == nil {
		client.httpClient = defaultHTTPClient(client.timeout)
	}

	return client, nil
}

func (c *Client) validate() error {
	switch c.scheme {
	case "http", "https":
	default:
		return usageErrorf("NewClient", ErrInvalidConfig, "invalid scheme %q, must be http or https", c.scheme)
	}

	c.host = strings.TrimSpace(c.host)
	if c.host == "" {
		return usageErrorf("NewClient", ErrInvalidConfig, "host is required")
	}
	if strings.ContainsAny(c.host, "/?#") {
		return usageErrorf("NewClient", ErrInvalidConfig, "invalid host %q", c.host)
	}

	if c.port < 0 || c.port > 65535 {
		return usageErrorf("NewClient", ErrInvalidConfig, "invalid port %d", c.port)
	}

	switch c.method {
	case http.MethodPost, http.MethodGet:
	default:
		return usageErrorf("NewClient", ErrInvalidConfig, "unsupported HTTP method %q", c.method)
	}

	if c.timeout < 0 {
		return usageErrorf("NewClient", ErrInvalidConfig, "timeout must not be negative")
	}

	if c.userID < 0 {
		return usageErrorf("NewClient", ErrInvalidConfig, "invalid user id %d", c.userID)
	}

	return nil
}

// Host returns the configured Remote API host
func (c *Client) Host() string {
	return c.host
}

// BaseURL returns the endpoint every call is sent to
func (c *Client) BaseURL() string {
	origin := fmt.Sprintf("%s://%s", c.scheme, c.host)
	if c.port > 0 {
		origin = fmt.Sprintf("%s://%s:%d", c.scheme, c.host, c.port)
	}

	if c.development {
		return origin + developmentPrefix + ajaxPath
	}
	return origin + ajaxPath
}

// Call invokes a remote service and returns the raw JSON payload.
//
// params may be any JSON-serializable value; nil is sent as an empty object.
func (c *Client) Call(ctx context.Context, svc string, params any) (json.RawMessage, error) {
	return c.call(ctx, svc, params, sessionFree[svc])
}

// CallInto invokes a remote service and decodes the payload into out.
func (c *Client) CallInto(ctx context.Context, svc string, params, out any) error {
	raw, err := c.Call(ctx, svc, params)
	if err != nil {
		return err
	}
	return decodeInto(svc, raw, out)
}

func (c *Client) callInto(ctx context.Context, svc string, params, out any) error {
	raw, err := c.call(ctx, svc, params, sessionFree[svc])
	if err != nil {
		return err
	}
	return decodeInto(svc, raw, out)
}

func decodeInto(svc string, raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{
			Svc:        svc,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
			Body:       raw,
		}
	}
	return nil
}

// call performs exactly one request. skipSession leaves the sid out of the
// envelope and lifts the authentication requirement.
func (c *Client) call(ctx context.Context, svc string, params any, skipSession bool) (json.RawMessage, error) {
	svc = strings.TrimSpace(svc)
	if svc == "" {
		return nil, usageErrorf("Call", ErrInvalidParams, "service name is required")
	}

	if !skipSession && c.sessionID == "" {
		return nil, usageErrorf(svc, ErrNotAuthenticated, "login is required before calling %s", svc)
	}

	encoded, err := c.encodeParams(svc, params)
	if err != nil {
		return nil, err
	}

	fields := url.Values{}
	fields.Set("svc", svc)
	fields.Set("params", string(encoded))
	if !skipSession && c.sessionID != "" {
		fields.Set("sid", c.sessionID)
	}

	req, err := c.newRequest(ctx, fields)
	if err != nil {
		return nil, usageErrorf(svc, ErrInvalidConfig, "failed to create request: %v", err)
	}

	c.logger.Debug().
		Str("svc", svc).
		Str("method", req.Method).
		Int("params_bytes", len(encoded)).
		Bool("with_session", fields.Has("sid")).
		Msg("Making Wialon API request")

	raw, err := c.roundTrip(svc, req)
	if err != nil {
		return nil, err
	}

	// The sid is dead once the server accepted a logout, however it was sent
	if svc == SvcLogout {
		c.clearSession()
	}
	return raw, nil
}

// roundTrip sends req and decodes the response body.
func (c *Client) roundTrip(svc string, req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Svc: svc, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLength))
	if err != nil {
		return nil, &TransportError{Svc: svc, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Trace().
		Str("svc", svc).
		Int("status", resp.StatusCode).
		Bytes("body", body).
		Msg("Received Wialon API response")

	return c.decodeResponse(svc, resp.StatusCode, body)
}

func (c *Client) newRequest(ctx context.Context, fields url.Values) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)

	if c.method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL()+"?"+fields.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL(), strings.NewReader(fields.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// encodeParams serializes params, merging extra params under object values.
func (c *Client) encodeParams(svc string, params any) ([]byte, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, usageErrorf(svc, ErrInvalidParams, "failed to encode params: %v", err)
	}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	if len(c.extraParams) == 0 || data[0] != '{' {
		return data, nil
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, usageErrorf(svc, ErrInvalidParams, "failed to merge params: %v", err)
	}

	for key, value := range c.extraParams {
		if _, exists := merged[key]; exists {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, usageErrorf(svc, ErrInvalidParams, "failed to encode extra param %q: %v", key, err)
		}
		merged[key] = raw
	}

	return json.Marshal(merged)
}

// decodeResponse turns a response body into a payload or a typed error.
func (c *Client) decodeResponse(svc string, statusCode int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, &ProtocolError{
			Svc:        svc,
			StatusCode: statusCode,
			Message:    "response is not valid JSON",
			Body:       body,
		}
	}

	apiErr, err := parseErrorObject(svc, trimmed)
	if err != nil {
		return nil, &ProtocolError{
			Svc:        svc,
			StatusCode: statusCode,
			Message:    err.Error(),
			Body:       body,
		}
	}
	if apiErr != nil {
		if apiErr.IsSessionExpired() && c.sessionID != "" {
			c.logger.Debug().Str("svc", svc).Int("code", apiErr.Code).Msg("Wialon session expired, clearing session")
			c.clearSession()
		}
		return nil, apiErr
	}

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProtocolError{
			Svc:        svc,
			StatusCode: statusCode,
			Message:    "unexpected HTTP status",
			Body:       body,
		}
	}

	return json.RawMessage(trimmed), nil
}

// parseErrorObject returns an APIError when data is an object carrying a
// non-zero "error" code. Non-object payloads are never errors.
func parseErrorObject(svc string, data []byte) (*APIError, error) {
	if len(data) == 0 || data[0] != '{' {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse response object: %w", err)
	}

	rawCode, ok := fields["error"]
	if !ok {
		return nil, nil
	}

	code, err := parseCode(rawCode)
	if err != nil {
		return nil, err
	}
	if code == 0 {
		return nil, nil
	}

	var reason string
	if rawReason, ok := fields["reason"]; ok && string(rawReason) != "null" {
		if err := json.Unmarshal(rawReason, &reason); err != nil {
			reason = string(rawReason)
		}
	}

	return newAPIError(svc, code, reason), nil
}

func parseCode(raw json.RawMessage) (int, error) {
	if string(raw) == "null" {
		return 0, nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		code, err := strconv.Atoi(number.String())
		if err != nil {
			return 0, fmt.Errorf("error code %s is not an integer", number)
		}
		return code, nil
	}

	// Some gateways quote the code
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		code, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return 0, fmt.Errorf("error code %q is not an integer", text)
		}
		return code, nil
	}

	return 0, fmt.Errorf("unexpected error field %s", string(raw))
}
