package models

import "time"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Account is the authenticated user's plan and remaining image credits.
type Account struct {
	Plan    Plan `json:"plan"`
	Credits int  `json:"credits"`
}

// Influencer is the generated character. IsLocked together with a non-empty
// InitialImageURL means generation has finished and the profile is final.
type Influencer struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Bio             string `json:"bio"`
	Vibe            string `json:"vibe"`
	InitialImageURL string `json:"initial_image_url"`
	IsLocked        bool   `json:"is_locked"`
}

// Ready reports whether the influencer has finished generating.
func (i *Influencer) Ready() bool {
	return i != nil && i.IsLocked && i.InitialImageURL != ""
}

type GalleryImage struct {
	URL string `json:"url"`
}

// Gallery is the ordered list of additional generated images. Order is
// creation order and the count never decreases while generation is in flight.
type Gallery struct {
	Images []GalleryImage `json:"images"`
}

func (g Gallery) Count() int {
	return len(g.Images)
}

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatInfo struct {
	ID string `json:"id"`
}

// Chat is the transcript plus the send permission. Messages are append-only
// from the client's point of view.
type Chat struct {
	Chat     *ChatInfo `json:"chat"`
	Messages []Message `json:"messages"`
	CanSend  bool      `json:"can_send"`
}

// LastRole returns the role of the last message, or "" for an empty thread.
func (c Chat) LastRole() Role {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].Role
}
