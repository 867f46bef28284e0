// Package client is the HTTP client for the BIZ dashboard backend /api surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// Defaults for a client built without options.
const (
	DefaultBaseURL      = "http://localhost:8000/api"
	DefaultTimeout      = 30 * time.Second
	DefaultPingInterval = 20 * time.Second
)

// RequestInterceptor may modify an outgoing request before it is sent.
// Returning an error aborts the call.
type RequestInterceptor func(*http.Request) error

// Client calls the backend API. It is safe for concurrent use.
type Client struct {
	baseURL      string
	timeout      time.Duration
	http         *http.Client
	header       http.Header
	intercept    RequestInterceptor
	log          logger.Logger
	metrics      *metrics.Manager
	dialer       *websocket.Dialer
	pingInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. http://host:8000/api.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient uses a copy of hc for backend calls. The copy's Timeout
// is set to the configured timeout; hc itself is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithRequestInterceptor installs a hook run on every outgoing request.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(c *Client) {
		if fn != nil {
			c.intercept = fn
		}
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPingInterval sets how often StreamDevice pings the backend.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

// New creates a client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		http:         &http.Client{},
		header:       http.Header{},
		intercept:    passThrough,
		log:          logger.New(slog.Default()),
		metrics:      metrics.Default(),
		pingInterval: DefaultPingInterval,
	}
	c.header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = c.timeout
	c.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.timeout,
	}
	return c
}

func passThrough(*http.Request) error { return nil }

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the configured per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Get issues GET path?params and returns the response body unchanged.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, path, params, nil)
}

// getJSON issues a GET and decodes the body into out. endpoint is the path
// template used for metrics and logs.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, path, params, nil)
	if err != nil {
		return err
	}
	return c.decode(ctx, http.MethodGet, endpoint, body, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, path string, in, out any) error {
	body, err := c.post(ctx, endpoint, path, in)
	if err != nil {
		return err
	}
	return c.decode(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) post(ctx context.Context, endpoint, path string, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, endpoint, path, nil, payload)
}

func (c *Client) decode(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(ctx, method, endpoint, 0, fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint, path string, params url.Values, payload []byte) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, c.fail(ctx, method, endpoint, 0, fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if err := c.intercept(req); err != nil {
		return nil, c.fail(ctx, method, endpoint, 0, fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}

	c.metrics.AddAPIInFlight(1)
	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.AddAPIInFlight(-1)
	return c.response(ctx, method, endpoint, start, resp, err)
}

// response unwraps the body of a finished call. Every failure is logged
// exactly once here and returned to the caller as is.
func (c *Client) response(ctx context.Context, method, endpoint string, start time.Time, resp *http.Response, err error) ([]byte, error) {
	if err != nil {
		c.metrics.RecordAPIRequest(endpoint, method, "error", msSince(start))
		return nil, c.fail(ctx, method, endpoint, 0, fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordAPIRequest(endpoint, method, strconv.Itoa(resp.StatusCode), msSince(start))
	if err != nil {
		return nil, c.fail(ctx, method, endpoint, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(ctx, method, endpoint, resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: body})
	}
	return body, nil
}

func (c *Client) fail(ctx context.Context, method, endpoint string, status int, err error) error {
	c.metrics.RecordAPIError(endpoint, method)
	c.log.Error(ctx, "API Error",
		logger.String("method", method),
		logger.String("endpoint", endpoint),
		logger.Int("status", status),
		logger.Error(err),
	)
	return err
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
