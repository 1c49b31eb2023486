// Package rpcclient calls instrument controllers over XML-RPC.
package rpcclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"

	"observe/internal/domain"
)

// DefaultPath is the request path XML-RPC controllers listen on.
const DefaultPath = "/RPC2"

// Client calls one instrument controller. Each call opens its own XML-RPC
// session, so a Client is safe for concurrent use. Calls are never retried.
type Client struct {
	endpoint  domain.InstrumentEndpoint
	url       string
	timeout   time.Duration
	transport *http.Transport
}

// Option configures a Client.
type Option func(*Client)

// WithPath overrides the request path (default /RPC2).
func WithPath(path string) Option {
	return func(c *Client) {
		c.url = "http://" + c.endpoint.String() + path
	}
}

// NewClient creates a client for endpoint. timeout bounds every call
// from dialing until the reply is decoded.
func NewClient(endpoint domain.InstrumentEndpoint, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		url:      "http://" + endpoint.String() + DefaultPath,
		timeout:  timeout,
		transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the controller this client talks to.
func (c *Client) Endpoint() domain.InstrumentEndpoint {
	return c.endpoint
}

// Call invokes function with positional params. Transport failures, remote
// faults and timeouts yield a Fault wrapping domain.ErrServiceUnavailable.
// A reply that is neither a struct nor a string yields a Fault wrapping
// domain.ErrInternal.
func (c *Client) Call(ctx context.Context, function string, params []any) domain.CallResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := xmlrpc.NewClient(c.url, contextTransport{ctx: ctx, base: c.transport})
	if err != nil {
		return unavailable(fmt.Errorf("creating xmlrpc client for %s: %w", c.url, err))
	}
	defer client.Close()

	if params == nil {
		params = []any{}
	}
	var reply any
	if err := client.Call(function, params, &reply); err != nil {
		slog.Warn("instrument call failed", "endpoint", c.endpoint.String(), "function", function, "error", err)
		return unavailable(fmt.Errorf("calling %s on %s: %w", function, c.endpoint, err))
	}

	switch v := reply.(type) {
	case map[string]any:
		return domain.Map(v)
	case string:
		return domain.Scalar(v)
	default:
		slog.Warn("unexpected instrument reply", "endpoint", c.endpoint.String(), "function", function, "type", fmt.Sprintf("%T", reply))
		return domain.Fault{Reason: fmt.Errorf("%w: %s returned %T", domain.ErrInternal, function, reply)}
	}
}

func unavailable(cause error) domain.Fault {
	return domain.Fault{Reason: fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, cause)}
}

// contextTransport binds every request of one call to the call's context,
// so cancellation aborts the dial, the request and the body read.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}
