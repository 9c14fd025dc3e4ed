package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Sentinel errors for common HTTP status codes. An *APIError matches the
// sentinel for its status code under errors.Is.
var (
	ErrUnauthorized = errors.New("rentdynamics: unauthorized (401)")
	ErrForbidden    = errors.New("rentdynamics: forbidden (403)")
	ErrNotFound     = errors.New("rentdynamics: not found (404)")
	ErrRateLimited  = errors.New("rentdynamics: rate limited (429)")
)

// APIError is a non-2xx response from the API. Message holds the trimmed
// response body, or the status text when the body is empty.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rentdynamics: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// HTTPClient is a resilient HTTP client with retry logic, exponential backoff,
// and jitter for communicating with the Rent Dynamics API.
type HTTPClient struct {
	client     *http.Client
	baseURL    string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     logr.Logger
}

// Option is a functional option for configuring HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.baseDelay = d
	}
}

// WithMaxDelay sets the maximum delay cap for exponential backoff.
func WithMaxDelay(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient uses a copy of hc for all requests. The copy keeps the
// current timeout when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc == nil {
			return
		}
		cp := *hc
		if cp.Timeout == 0 {
			cp.Timeout = c.client.Timeout
		}
		c.client = &cp
	}
}

// WithLogger sets the logger used for request and retry diagnostics.
func WithLogger(l logr.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

// NewHTTPClient creates a new HTTPClient with the given base URL and options.
// Default configuration: timeout=10s, maxRetries=3, baseDelay=100ms, maxDelay=5s.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   5 * time.Second,
		logger:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request. rawQuery must either be empty or start
// with '?'; it is percent-encoded with escapeQuery before it is sent.
func (c *HTTPClient) Get(ctx context.Context, path, rawQuery string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, rawQuery, headers, nil)
}

// Post performs an HTTP POST request with an already-encoded JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, headers http.Header, body []byte) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, "", headers, body)
}

// Put performs an HTTP PUT request with an already-encoded JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, headers http.Header, body []byte) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, "", headers, body)
}

// Delete performs an HTTP DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, "", headers, nil)
}

// Do builds and executes a request through the retry loop.
func (c *HTTPClient) Do(ctx context.Context, method, path, rawQuery string, headers http.Header, body []byte) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, rawQuery, headers, body)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// do executes the HTTP request with retry logic, exponential backoff, and jitter.
// It buffers the request body upfront so retries can replay it.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("rentdynamics: reading request body: %w", err)
		}
		req.Body.Close()
	}

	log := c.logger.WithValues("method", req.Method, "path", req.URL.Path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}

		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			req.ContentLength = int64(len(bodyBytes))
		}

		log.V(1).Info("sending request", "attempt", attempt+1)
		resp, err := c.client.Do(req)
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}
			lastErr = err
			log.V(1).Info("request failed, retrying", "attempt", attempt+1, "error", err.Error())
			if attempt < c.maxRetries {
				if waitErr := c.backoff(req.Context(), attempt, 0); waitErr != nil {
					return nil, waitErr
				}
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			log.V(1).Info("received response", "status", resp.StatusCode)
			return resp, nil
		}

		lastErr = &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			Path:       req.URL.Path,
			Message:    readMessage(resp),
		}
		log.V(1).Info("retryable status", "attempt", attempt+1, "status", resp.StatusCode)

		if attempt < c.maxRetries {
			retryAfter := parseRetryAfter(resp)
			if waitErr := c.backoff(req.Context(), attempt, retryAfter); waitErr != nil {
				return nil, waitErr
			}
		}
	}

	return nil, fmt.Errorf("rentdynamics: request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// backoff sleeps for an exponentially increasing duration with jitter, capped
// at maxDelay. If retryAfterSec is positive (from a Retry-After header), that
// value is used instead.
func (c *HTTPClient) backoff(ctx context.Context, attempt int, retryAfterSec int) error {
	var delay time.Duration
	if retryAfterSec > 0 {
		delay = time.Duration(retryAfterSec) * time.Second
	} else {
		exp := math.Pow(2, float64(attempt))
		delay = time.Duration(float64(c.baseDelay) * exp)
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
		// Jitter factor in [0.75, 1.25].
		jitter := 0.75 + rand.Float64()*0.5
		delay = time.Duration(float64(delay) * jitter)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter extracts the Retry-After header value (in seconds) from an
// HTTP response. Returns 0 if the header is absent or unparseable.
func parseRetryAfter(resp *http.Response) int {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// readMessage consumes and closes the response body, returning it trimmed, or
// the status text when it is empty or unreadable.
func readMessage(resp *http.Response) string {
	if resp.Body == nil {
		return http.StatusText(resp.StatusCode)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(body))
	if err != nil || msg == "" {
		return http.StatusText(resp.StatusCode)
	}
	return msg
}

// escapeQuery percent-encodes the bytes a browser's fetch would encode in a
// query: controls, space, '"', '#', '\'', '<', '>', DEL and non-ASCII. The
// filter dialect's '|', ',', '=', '&' and '%' pass through unchanged.
func escapeQuery(rawQuery string) string {
	const hex = "0123456789ABCDEF"
	if !strings.ContainsFunc(rawQuery, func(r rune) bool { return r > 0x7E || shouldEscapeQuery(byte(r)) }) {
		return rawQuery
	}
	var b strings.Builder
	b.Grow(len(rawQuery) + 16)
	for i := 0; i < len(rawQuery); i++ {
		ch := rawQuery[i]
		if shouldEscapeQuery(ch) {
			b.WriteByte('%')
			b.WriteByte(hex[ch>>4])
			b.WriteByte(hex[ch&0x0F])
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func shouldEscapeQuery(ch byte) bool {
	switch ch {
	case '"', '#', '\'', '<', '>':
		return true
	}
	return ch <= 0x20 || ch >= 0x7F
}

// isRetryableError reports whether a network-level error is transient and the
// request should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// NXDOMAIN is permanent.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") {
		return true
	}

	return false
}

// isRetryableStatus reports whether an HTTP status code indicates a transient
// failure: 429 (Too Many Requests) and all 5xx server errors.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// newRequest builds an *http.Request with the full URL, JSON body, and headers.
func (c *HTTPClient) newRequest(ctx context.Context, method, path, rawQuery string, headers http.Header, body []byte) (*http.Request, error) {
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	url := c.baseURL + path + escapeQuery(rawQuery)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("rentdynamics: creating request: %w", err)
	}

	// Caller headers first so they take precedence over defaults.
	for key, vals := range headers {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// ParseResponse reads the response body and checks for API errors.
// On success (2xx), it returns the raw body bytes.
// On error, it returns an *APIError with the status code, method, path, and
// message extracted from the response body.
func ParseResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rentdynamics: reading response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Method:     resp.Request.Method,
		Path:       resp.Request.URL.Path,
		Message:    msg,
	}
}
