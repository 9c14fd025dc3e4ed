// Package client is a Go client for the Rent Dynamics REST API.
//
// Every request is signed with the API key and secret: the request timestamp,
// endpoint path and canonical payload are hashed with HMAC-SHA1 into the
// x-rd-api-nonce header. List endpoints accept query.Params, which serialize
// into the API's filter dialect.
//
//	c := client.NewClient(client.WithCredentials(apiKey, apiSecret))
//	units, err := client.Decode[[]Unit](c.Get(ctx, "/units", query.Params{
//		Filters: map[string]any{"community": map[string]any{"id": 12}},
//		Include: []string{"unitType"},
//	}))
package client

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/rentdynamics/rd-client-go/internal/transport"
	"github.com/rentdynamics/rd-client-go/payload"
	"github.com/rentdynamics/rd-client-go/signing"
)

// Client is a Rent Dynamics API client. It is safe for concurrent use; the
// session token set by Login and cleared by Logout is guarded by a mutex.
type Client struct {
	http   *transport.HTTPClient
	logger logr.Logger

	apiKey         string
	apiSecretKey   string
	development    bool
	developmentURL string
	baseURL        string

	httpOpts []transport.Option

	mu        sync.RWMutex
	authToken string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key sent in x-rd-api-key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithAPISecretKey sets the secret the request nonce is keyed with.
func WithAPISecretKey(secret string) Option {
	return func(c *Client) { c.apiSecretKey = secret }
}

// WithCredentials sets both the API key and secret.
func WithCredentials(apiKey, apiSecretKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
		c.apiSecretKey = apiSecretKey
	}
}

// WithAuthToken sets an existing session token, as returned by Login.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithDevelopment targets the development API instead of production.
func WithDevelopment(development bool) Option {
	return func(c *Client) { c.development = development }
}

// WithDevelopmentURL overrides the development API URL. It has no effect
// unless WithDevelopment(true) is also given.
func WithDevelopmentURL(url string) Option {
	return func(c *Client) { c.developmentURL = url }
}

// WithBaseURL sends every request to url regardless of the development
// settings. Mostly useful for tests and proxies.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, transport.WithTimeout(d)) }
}

// WithMaxRetries sets how many times transient failures are retried (default 3).
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, transport.WithMaxRetries(n)) }
}

// WithRetryDelays sets the base and maximum exponential backoff delays.
func WithRetryDelays(base, max time.Duration) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, transport.WithBaseDelay(base), transport.WithMaxDelay(max))
	}
}

// WithHTTPClient sends requests through a copy of hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, transport.WithHTTPClient(hc)) }
}

// WithLogger sets the logger for request diagnostics. Credentials are never
// logged.
func WithLogger(l logr.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. Without credentials requests are sent unsigned.
func NewClient(opts ...Option) *Client {
	c := &Client{logger: logr.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	httpOpts := append([]transport.Option{transport.WithLogger(c.logger)}, c.httpOpts...)
	c.http = transport.NewHTTPClient(c.BaseURL(), httpOpts...)
	return c
}

// BaseURL returns the API root requests are sent to: the WithBaseURL override
// if set, otherwise the development URL (custom or default) in development
// mode, otherwise production.
func (c *Client) BaseURL() string {
	switch {
	case c.baseURL != "":
		return c.baseURL
	case c.development && c.developmentURL != "":
		return c.developmentURL
	case c.development:
		return DevelopmentURL
	}
	return ProductionURL
}

// AuthToken returns the current session token, if any.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// SetAuthToken replaces the session token. An empty token removes the
// Authorization header from subsequent requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

func (c *Client) credentials() signing.Credentials {
	return signing.Credentials{
		APIKey:       c.apiKey,
		APISecretKey: c.apiSecretKey,
		AuthToken:    c.AuthToken(),
	}
}

// Headers returns the signed headers for a request to endpoint carrying body,
// or an empty set when the client has no API key and secret. A nil body means
// the request has no payload.
func (c *Client) Headers(endpoint string, body *payload.Value) (http.Header, error) {
	return signing.BuildHeaders(c.credentials(), normalizePath(endpoint), body)
}

func normalizePath(endpoint string) string {
	if endpoint == "" || strings.HasPrefix(endpoint, "/") {
		return endpoint
	}
	return "/" + endpoint
}
