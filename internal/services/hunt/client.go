// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/torrenthunt/internal/buildinfo"
	"github.com/autobrr/torrenthunt/internal/models"
)

const (
	DefaultAPIURL  = "https://torrent-api-py-nx0x.onrender.com"
	DefaultTimeout = 30 * time.Second

	// DefaultSearchLimit is the per-provider limit sent with search requests.
	DefaultSearchLimit = 25

	maxResponseBytes int64 = 8 << 20
)

// Fetcher performs one upstream request for one provider.
type Fetcher interface {
	FetchSearch(ctx context.Context, query, provider, category string) (Page, error)
	FetchTrending(ctx context.Context, provider string, limit int) (Page, error)
}

// SiteLister lists the providers the upstream API currently exposes.
type SiteLister interface {
	FetchSites(ctx context.Context) ([]RemoteSite, error)
}

// Client talks to the torrent search API. It is safe for concurrent use;
// all calls share one transport.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	timeout     time.Duration
	searchLimit int
}

type ClientOption func(*Client)

// WithHTTPClient replaces the shared HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSearchLimit changes the per-provider limit sent with search requests.
func WithSearchLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.searchLimit = limit
		}
	}
}

// NewClient creates a client for the API at baseURL. A non-positive timeout
// falls back to DefaultTimeout; it bounds every call individually.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:      strings.TrimSpace(apiKey),
		httpClient:  &http.Client{},
		timeout:     timeout,
		searchLimit: DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchSearch queries one provider for a keyword. The category parameter is
// only sent when it narrows the search.
func (c *Client) FetchSearch(ctx context.Context, query, provider, category string) (Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("site", provider)
	params.Set("limit", strconv.Itoa(c.searchLimit))
	if category != "" && !strings.EqualFold(category, models.CategoryAll) {
		params.Set("category", category)
	}
	return c.fetchPage(ctx, provider, "/api/v1/search", params)
}

// FetchTrending asks one provider for up to limit trending listings.
func (c *Client) FetchTrending(ctx context.Context, provider string, limit int) (Page, error) {
	params := url.Values{}
	params.Set("site", provider)
	params.Set("limit", strconv.Itoa(limit))
	return c.fetchPage(ctx, provider, "/api/v1/trending", params)
}

func (c *Client) fetchPage(ctx context.Context, provider, path string, params url.Values) (Page, error) {
	body, err := c.get(ctx, provider, path, params)
	if err != nil {
		return Page{}, err
	}

	page, err := parsePage(provider, body)
	if err != nil {
		return Page{}, &ProviderUnavailableError{Provider: provider, Message: err.Error(), Err: err}
	}

	if page.Skipped > 0 {
		log.Debug().
			Str("provider", provider).
			Int("skipped", page.Skipped).
			Msg("Dropped results without magnet link")
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, provider, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderUnavailableError{Provider: provider, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "request failed"
		if isTimeoutError(err) {
			msg = fmt.Sprintf("request timed out after %s", c.timeout)
		}
		return nil, &ProviderUnavailableError{Provider: provider, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProviderUnavailableError{Provider: provider, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			if apiMsg, ok := env.apiError(); ok {
				msg = apiMsg
			} else if m := strings.TrimSpace(string(env.Message)); m != "" {
				msg = m
			}
		}
		return nil, &ProviderUnavailableError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return body, nil
}
