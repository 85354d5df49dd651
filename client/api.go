package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"malawiexplorer/analytics/models"

	json "github.com/goccy/go-json"
)

// Client talks to the analytics HTTP API.
type Client struct {
	BaseURL    string
	APIKey     string
	Token      string
	UserAgent  string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx response. Message carries the server's error string.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analytics api: %d %s", e.StatusCode, e.Message)
}

// Track posts one page view.
func (c *Client) Track(ctx context.Context, req models.TrackRequest) error {
	return c.do(ctx, http.MethodPost, "/api/track", req, nil)
}

func (c *Client) RealTime(ctx context.Context) (models.RealTimeSnapshot, error) {
	var snap models.RealTimeSnapshot
	err := c.do(ctx, http.MethodGet, "/api/analytics/realtime", nil, &snap)
	return snap, err
}

func (c *Client) Historical(ctx context.Context, days int) ([]models.DailyStat, error) {
	var stats []models.DailyStat
	path := "/api/analytics/historical"
	if days > 0 {
		path += "?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	}
	err := c.do(ctx, http.MethodGet, path, nil, &stats)
	return stats, err
}

func (c *Client) Sessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := c.do(ctx, http.MethodGet, "/api/analytics/sessions", nil, &sessions)
	return sessions, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-KEY", c.APIKey)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
