// Package feed reads property records from a remote record feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/pkg/metrics"
)

const defaultTimeout = 15 * time.Second

// Client implements ports.RecordSource over HTTP. The feed answers
// GET <base>?limit=N with a JSON array of records.
type Client struct {
	base    *url.URL
	http    *fasthttp.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds requests made without a context deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDialer replaces how connections are opened.
func WithDialer(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// NewClient creates a feed client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("feed url %q: unsupported scheme", baseURL)
	}

	c := &Client{
		base: u,
		http: &fasthttp.Client{
			Name:                "mapexplorer-feed",
			MaxConnsPerHost:     16,
			ReadTimeout:         defaultTimeout,
			WriteTimeout:        defaultTimeout,
			MaxIdleConnDuration: time.Minute,
		},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRecords downloads up to limit records.
func (c *Client) FetchRecords(ctx context.Context, limit int) ([]domain.PropertyRecord, error) {
	start := time.Now()
	records, err := c.fetch(ctx, limit)
	metrics.FeedFetchDuration.WithLabelValues("remote").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedFetchErrors.WithLabelValues("remote").Inc()
		return nil, err
	}
	return records, nil
}

func (c *Client) fetch(ctx context.Context, limit int) ([]domain.PropertyRecord, error) {
	u := *c.base
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u.String())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u.Redacted(), err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode(), u.Redacted())
	}

	var records []domain.PropertyRecord
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return records, nil
}
