package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

const maxResponseBodySize = 4 << 20 // 4MB

// connection pooling limits; the API is a single host polled every few seconds
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 90 * time.Second
)

// Response holds the result of a completed HTTP request made by [Client].
type Response struct {
	// Body contains the response body, limited to 4MB.
	Body []byte

	// StatusCode is the HTTP status code.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration
}

// Client is a pooled HTTP client for JSON APIs.
//
// Timeouts are applied per request via context rather than on the
// http.Client, so one client can serve calls with different deadlines.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
}

// NewClient creates a [Client] that sends headers with every request.
func NewClient(headers map[string]string) *Client {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Client{
		httpClient: &http.Client{
			// no client timeout; callers bound each request via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		headers: h,
	}
}

// Get performs a GET of endpoint with the given query parameters.
//
// Transport failures, including timeouts, are returned as network
// [*flight.FetchError] values. Non-2xx responses are not errors here; the
// caller maps status codes to error kinds.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, timeout time.Duration) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	u := endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, flight.NewFetchError(flight.ErrNetwork, "invalid request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{Latency: time.Since(start)},
				flight.NewFetchError(flight.ErrNetwork, "Request timed out", err)
		}
		return Response{Latency: time.Since(start)},
			flight.NewFetchError(flight.ErrNetwork, "Connection error", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{StatusCode: resp.StatusCode, Latency: time.Since(start)},
			flight.NewFetchError(flight.ErrNetwork, "failed to read response body", err)
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}, nil
}

// Close closes idle pooled connections. The client stays usable.
// Safe to call multiple times and on a nil receiver.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// statusError maps a non-2xx HTTP status to a typed fetch error.
func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return flight.NewFetchError(flight.ErrAuth, "Invalid API key", nil)
	case code == http.StatusTooManyRequests:
		return flight.NewFetchError(flight.ErrRateLimit, "Rate limit exceeded", nil)
	case code < 200 || code >= 300:
		return flight.NewFetchError(flight.ErrNetwork, fmt.Sprintf("HTTP error: %d %s", code, http.StatusText(code)), nil)
	default:
		return nil
	}
}
