package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/models"
)

// HTTPClient implements DataSource by calling the wlog REST API.
// Used when the MCP binary runs locally (stdio) but the signed-in session
// lives on a remote server (reached over Tailscale).
type HTTPClient struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting baseURL and authenticating
// with an existing session id.
func NewHTTPClient(baseURL, sessionID string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: c.sessionID})
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: GET %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var out []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ExerciseOptions(ctx context.Context) (models.PropertyOptions, error) {
	var out models.PropertyOptions
	err := c.get(ctx, "/api/v1/exercises/options", &out)
	return out, err
}

func (c *HTTPClient) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	var out []models.Routine
	if err := c.get(ctx, "/api/v1/routines", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) SearchDatabases(ctx context.Context) ([]models.DataSourceSummary, error) {
	var out []models.DataSourceSummary
	if err := c.get(ctx, "/api/v1/databases", &out); err != nil {
		return nil, err
	}
	return out, nil
}
