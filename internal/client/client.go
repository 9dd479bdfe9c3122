// Package client talks to a remote splitlog server over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client calls the splitlog REST API on behalf of one user.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. apiKey may be empty when the
// server does not require one for the calls being made.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ActiveSession is the body of GET /api/v1/sessions/active.
type ActiveSession struct {
	Active    bool       `json:"active"`
	SessionID *uuid.UUID `json:"session_id"`
}

// ImportResult is the body returned by the Alpha Progression import endpoint.
type ImportResult struct {
	SessionsReceived int      `json:"sessions_received"`
	SessionsImported int      `json:"sessions_imported"`
	SessionsSkipped  int      `json:"sessions_skipped"`
	SetsImported     int      `json:"sets_imported"`
	Errors           []string `json:"errors,omitempty"`
}

// ActiveSessionID reports the user's active session on the server.
func (c *Client) ActiveSessionID(ctx context.Context, userID int) (uuid.UUID, bool, error) {
	var out ActiveSession
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/active", userID, nil, "", &out); err != nil {
		return uuid.Nil, false, err
	}
	if !out.Active || out.SessionID == nil {
		return uuid.Nil, false, nil
	}
	return *out.SessionID, true, nil
}

// ImportAlpha uploads an Alpha Progression CSV export.
func (c *Client) ImportAlpha(ctx context.Context, userID int, csv io.Reader) (*ImportResult, error) {
	var out ImportResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/import/alpha", userID, csv, "text/csv", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, userID int, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("X-User-ID", strconv.Itoa(userID))
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}
