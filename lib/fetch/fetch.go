/*
Copyright 2026 PeppolKit Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fetch provides the pooled HTTP GET client used for all SMP
// traffic: keep-alive connections per origin, per-request timeouts,
// and the single bounded redirect the Peppol SMP profile permits.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gravitational/trace"

	"github.com/peppolkit/smp-resolver-ng/lib/defaults"
)

// Config configures the fetch client.
type Config struct {
	// UserAgent is sent with every request.
	UserAgent string
	// Timeout bounds a single request, headers and body combined,
	// unless GetWithTimeout overrides it.
	Timeout time.Duration
	// MaxConnsPerHost caps concurrent connections per origin.
	MaxConnsPerHost int
	// MaxIdleConns caps idle keep-alive connections across origins.
	MaxIdleConns int
}

// CheckAndSetDefaults checks and sets defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.HTTPTimeout
	}
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = defaults.HTTPMaxConnsPerHost
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaults.HTTPMaxIdleConns
	}
	return nil
}

// Response is the outcome of a completed GET, after any permitted
// redirect has been followed.
type Response struct {
	// StatusCode is the final HTTP status.
	StatusCode int
	// Header holds the final response headers.
	Header http.Header
	// Body is the fully read response body.
	Body []byte
	// FinalURL is the URL that produced the final response.
	FinalURL string
	// Redirects counts how many redirects were followed.
	Redirects int
}

// Client is a pooled HTTP GET client. The zero value is not usable;
// construct with New. Client is safe for concurrent use and holds
// idle connections until Close.
type Client struct {
	cfg       Config
	transport *http.Transport
	client    *http.Client
}

// New returns a fetch client from the given configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxIdleConns:        cfg.MaxIdleConns,
		IdleConnTimeout:     defaults.HTTPIdleTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		cfg:       cfg,
		transport: transport,
		client: &http.Client{
			Transport: transport,
			// Redirects are followed manually in get so the redirect
			// count and final URL can be reported.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Get performs a GET with the client's default timeout.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.get(ctx, url, c.cfg.Timeout)
}

// GetWithTimeout performs a GET with a caller-supplied timeout, used by
// the short-deadline business card probe.
func (c *Client) GetWithTimeout(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	return c.get(ctx, url, timeout)
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	current := url
	for redirects := 0; ; redirects++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, trace.BadParameter("building request for %v: %v", current, err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", "application/xml, text/xml")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, trace.ConnectionProblem(err, "request to %v failed", current)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location, locErr := resp.Location()
			drain(resp.Body)
			if locErr != nil {
				return nil, trace.BadParameter("redirect from %v carries no Location header", current)
			}
			if redirects >= defaults.MaxRedirects {
				return nil, trace.LimitExceeded("more than %v redirect fetching %v", defaults.MaxRedirects, url)
			}
			// resp.Location resolved a relative Location against the
			// request URL already.
			current = location.String()
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, defaults.MaxResponseBytes))
		resp.Body.Close()
		if err != nil {
			return nil, trace.ConnectionProblem(err, "reading response body from %v", current)
		}
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			FinalURL:   current,
			Redirects:  redirects,
		}, nil
	}
}

// IsTransportError reports whether an error from Get represents a
// network, TLS, or timeout failure rather than a well-formed HTTP
// exchange. The business card probe's fast-fail rules key off this.
func IsTransportError(err error) bool {
	return trace.IsConnectionProblem(err)
}

// Close drains the connection pool, closing all idle persistent
// connections. In-flight requests are unaffected.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// drain discards any unread body so the connection can be reused.
func drain(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, defaults.MaxResponseBytes)) //nolint:errcheck
	body.Close()
}
