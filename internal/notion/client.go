package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/claude/wlog/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2025-09-03"
)

// Client calls the remote API on behalf of one access token.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
	metrics    *metrics.Manager
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithVersion sets the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// WithMetrics records remote calls on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBackOff sets the retry policy for rate-limited and failed calls.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

// WithMaxRetries keeps the default exponential policy with a retry limit.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.newBackOff = func() backoff.BackOff {
			return backoff.WithMaxRetries(defaultBackOff(), n)
		}
	}
}

func defaultBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 400 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// New creates a Client targeting baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		version:    DefaultVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	WithMaxRetries(3)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// QueryDataSource returns every page of a data source matching req,
// following pagination cursors until the result set is exhausted.
func (c *Client) QueryDataSource(ctx context.Context, dataSourceID string, req QueryRequest) ([]Page, error) {
	path := "/v1/data_sources/" + url.PathEscape(dataSourceID) + "/query"
	var pages []Page
	for {
		var resp listResponse[Page]
		if err := c.do(ctx, http.MethodPost, path, "data_sources.query", req, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		req.StartCursor = *resp.NextCursor
	}
}

// RetrieveDataSource returns a data source with its schema.
func (c *Client) RetrieveDataSource(ctx context.Context, dataSourceID string) (*DataSource, error) {
	var ds DataSource
	if err := c.do(ctx, http.MethodGet, "/v1/data_sources/"+url.PathEscape(dataSourceID), "data_sources.retrieve", nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// RetrieveDatabase returns a database and the data sources it contains.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+url.PathEscape(databaseID), "databases.retrieve", nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// CreatePage creates a page in a data source.
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	var p Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", "pages.create", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePage updates page properties or archives the page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, req UpdatePageRequest) (*Page, error) {
	var p Page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), "pages.update", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Search returns every object the token can see that matches req.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]DataSource, error) {
	var out []DataSource
	for {
		var resp listResponse[DataSource]
		if err := c.do(ctx, http.MethodPost, "/v1/search", "search", req, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return out, nil
		}
		req.StartCursor = *resp.NextCursor
	}
}

// ListUsers returns the first page of workspace users.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp listResponse[User]
	if err := c.do(ctx, http.MethodGet, "/v1/users", "users.list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notion: encode %s request: %w", endpoint, err)
		}
	}

	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics == nil {
			return
		}
		c.metrics.CounterRemoteRequests.WithLabelValues(endpoint, status).Inc()
		c.metrics.HistRemoteDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	op := func() error {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("notion: create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Notion-Version", c.version)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("notion: %s: %w", endpoint, err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("notion: read body: %w", err)
		}
		status = strconv.Itoa(resp.StatusCode)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("notion: decode %s: %w", endpoint, err))
			}
			return nil
		}

		apiErr := parseAPIError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	apiErr.Status = status
	return apiErr
}

// IsNotFound reports whether err is a 404 from the remote API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err means the access token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
