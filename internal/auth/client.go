// Package auth talks to the hosted identity provider: password sign-in,
// sign-up with email confirmation, PKCE code exchange, and best-effort
// sign-out.
package auth

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

// Session is the token pair issued by the provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// ProviderError carries the provider's message verbatim so it can be shown to
// the user unchanged.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth request failed: status=%d", e.Status)
}

type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL, anonKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// SignIn exchanges email/password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", payload, "", &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, &ProviderError{Message: "provider returned no access token"}
	}
	return &session, nil
}

// SignUp registers a new account. The provider emails a confirmation link
// that redirects to redirectTo with an authorization code; the PKCE challenge
// binds that code to the verifier held locally.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo, codeChallenge string) error {
	path := "/auth/v1/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	payload := map[string]string{"email": email, "password": password}
	if codeChallenge != "" {
		payload["code_challenge"] = codeChallenge
		payload["code_challenge_method"] = "s256"
	}
	return c.post(ctx, path, payload, "", nil)
}

// ExchangeCode completes the PKCE flow, trading the authorization code and
// verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	payload := map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	}
	var session Session
	if err := c.post(ctx, "/auth/v1/token?grant_type=pkce", payload, "", &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, &ProviderError{Message: "provider returned no access token"}
	}
	return &session, nil
}

// SignOut revokes the session server-side. Callers treat failures as
// best-effort: local credentials are cleared regardless.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/auth/v1/logout", struct{}{}, accessToken, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, bearer string, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth post %s: %w", path, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &ProviderError{Status: resp.StatusCode, Message: providerMessage(rawBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

// providerMessage pulls the human-readable message out of the provider's
// error body, whichever field it used this time.
func providerMessage(body []byte) string {
	var parsed struct {
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.ErrorDescription != "":
			return parsed.ErrorDescription
		case parsed.Message != "":
			return parsed.Message
		case parsed.Msg != "":
			return parsed.Msg
		}
	}
	return strings.TrimSpace(string(body))
}
