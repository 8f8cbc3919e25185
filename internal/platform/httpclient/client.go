// Package httpclient wraps http.Client with sane transport defaults,
// default headers, and structured request logging. Retrying is left to
// the caller: probe jobs drive retries through the scheduler, which
// keeps the waits testable.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"rxsched/internal/shared"
)

// Client wraps http.Client with logging.
type Client struct {
	hc          *http.Client
	log         *slog.Logger
	headers     map[string]string
	urlRedactor func(*url.URL) string
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets the logger used by the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHeaders adds default headers applied to each request unless the
// request already sets them.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithTransport sets a custom transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// WithURLRedactor sets the URL redactor used in logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) {
		if f != nil {
			c.urlRedactor = f
		}
	}
}

// New creates a configured Client.
func New(opts ...Option) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 10
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second

	c := &Client{
		hc: &http.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends the request with the client's defaults applied and logs the
// outcome. The response body is the caller's to close.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	r := req.Clone(ctx)
	for k, v := range c.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}

	u := c.redactURL(r.URL)
	start := time.Now()
	resp, err := c.hc.Do(r)
	dur := time.Since(start)
	if err != nil {
		c.log.Warn("http request error",
			slog.String("method", r.Method), slog.String("url", u),
			slog.Duration("dur", dur), slog.Any("error", err))
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}

	c.log.Debug("http request",
		slog.String("method", r.Method), slog.String("url", u),
		slog.Int("status", resp.StatusCode), slog.Duration("dur", dur))
	return resp, nil
}

// Check issues a GET and reports an error unless the response status
// is 2xx. The response body is drained and closed.
func (c *Client) Check(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return shared.MarkKind(err, shared.KindValidation)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return shared.MarkKind(
			fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.redactURL(req.URL)),
			shared.KindDependencyFailure,
		)
	}
	return nil
}

func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// drainAndClose drains up to 512KB from body and closes it, keeping
// the connection reusable.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}
