// Package api wraps the dashboard backend's bearer-authenticated JSON
// endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies the bearer credential for outbound calls. An empty
// token means signed out.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Call performs one authenticated JSON request and decodes the response into
// out (which may be nil for side-effect-only endpoints). It fails fast with
// ErrUnauthenticated when no credential is stored.
func (c *Client) Call(ctx context.Context, method, path string, payload any, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return ErrUnauthenticated
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base URL: %w", err)
	}
	endpoint, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	fullURL := base.ResolveReference(endpoint).String()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Debug("api call failed", "method", method, "path", path, "status", resp.StatusCode, "body", truncateBody(string(rawBody)))
		}
		return &RequestError{Status: resp.StatusCode, Body: string(rawBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("decode response: %w (body=%s)", err, truncateBody(string(rawBody)))
	}
	return nil
}
