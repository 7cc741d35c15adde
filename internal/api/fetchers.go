package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/digkill/SweetheartDash/internal/models"
)

// Me returns the account's plan and remaining credits.
func (c *Client) Me(ctx context.Context) (models.Account, error) {
	var account models.Account
	if err := c.Call(ctx, http.MethodGet, "/api/me", nil, &account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// Influencer returns the current influencer, or nil when none has been
// created yet.
func (c *Client) Influencer(ctx context.Context) (*models.Influencer, error) {
	var resp struct {
		Influencer *models.Influencer `json:"influencer"`
	}
	if err := c.Call(ctx, http.MethodGet, "/api/influencer", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Influencer, nil
}

// CreateInfluencer enqueues asynchronous generation of the character. All
// three fields are required; validation happens before any network call.
func (c *Client) CreateInfluencer(ctx context.Context, name, bio, vibe string) error {
	name = strings.TrimSpace(name)
	bio = strings.TrimSpace(bio)
	vibe = strings.TrimSpace(vibe)
	switch {
	case name == "":
		return &ValidationError{Field: "name"}
	case bio == "":
		return &ValidationError{Field: "bio"}
	case vibe == "":
		return &ValidationError{Field: "vibe"}
	}

	payload := map[string]string{"name": name, "bio": bio, "vibe": vibe}
	return c.Call(ctx, http.MethodPost, "/api/influencer", payload, nil)
}

// Images returns the gallery of additional generated images.
func (c *Client) Images(ctx context.Context) (models.Gallery, error) {
	var gallery models.Gallery
	if err := c.Call(ctx, http.MethodGet, "/api/images", nil, &gallery); err != nil {
		return models.Gallery{}, err
	}
	return gallery, nil
}

// CreateImage enqueues one additional image generation.
func (c *Client) CreateImage(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return &ValidationError{Field: "prompt"}
	}
	return c.Call(ctx, http.MethodPost, "/api/images/create", map[string]string{"prompt": prompt}, nil)
}

// Chat returns the transcript and send permission. Chat.Chat is nil while the
// chat has not been unlocked.
func (c *Client) Chat(ctx context.Context) (models.Chat, error) {
	var chat models.Chat
	if err := c.Call(ctx, http.MethodGet, "/api/chat", nil, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// SendMessage posts one user message to the chat.
func (c *Client) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return &ValidationError{Field: "content"}
	}
	return c.Call(ctx, http.MethodPost, "/api/chat/message", map[string]string{"content": content}, nil)
}

// Upgrade starts a checkout session and returns the URL to open.
func (c *Client) Upgrade(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.Call(ctx, http.MethodPost, "/api/upgrade", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// BillingPortal returns the billing portal URL for the account.
func (c *Client) BillingPortal(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.Call(ctx, http.MethodPost, "/api/billing-portal", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
