package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/SweetheartDash/internal/models"
)

func msg(role models.Role, content string) models.Message {
	return models.Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC),
	}
}

func TestShowAccountSuppressesUnchangedState(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	account := models.Account{Plan: models.PlanFree, Credits: 3}
	term.ShowAccount(account)
	first := buf.String()
	require.Contains(t, first, "3")
	require.Contains(t, first, "upgrade")

	term.ShowAccount(account)
	assert.Equal(t, first, buf.String(), "unchanged account must not re-render")

	term.ShowAccount(models.Account{Plan: models.PlanFree, Credits: 2})
	assert.Greater(t, len(buf.String()), len(first), "credit change must render")
}

func TestShowAccountProPlanHidesUpgradeHint(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	term.ShowAccount(models.Account{Plan: models.PlanPro, Credits: 100})
	assert.NotContains(t, buf.String(), "upgrade")
}

func TestShowInfluencerStates(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	term.ShowInfluencer(nil)
	require.Contains(t, buf.String(), "No influencer yet")

	term.ShowInfluencer(nil)
	assert.Equal(t, 1, strings.Count(buf.String(), "No influencer yet"))

	waiting := &models.Influencer{Name: "Mia", Vibe: "sunny", IsLocked: true}
	term.ShowInfluencer(waiting)
	require.Contains(t, buf.String(), "Mia — vibe: sunny")
	require.Contains(t, buf.String(), "generating")

	ready := &models.Influencer{Name: "Mia", Vibe: "sunny", IsLocked: true, InitialImageURL: "https://cdn/x.png"}
	term.ShowInfluencer(ready)
	assert.Contains(t, buf.String(), "Image: https://cdn/x.png")
}

func TestShowGallerySuppressesUnchangedAndSkipsEmpty(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	term.ShowGallery(models.Gallery{})
	assert.Empty(t, buf.String())

	gallery := models.Gallery{Images: []models.GalleryImage{{URL: "https://cdn/a.png"}}}
	term.ShowGallery(gallery)
	first := buf.String()
	require.Contains(t, first, "https://cdn/a.png")

	term.ShowGallery(gallery)
	assert.Equal(t, first, buf.String())
}

func TestShowChatPrintsOnlyNewMessages(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	chat := models.Chat{
		Chat:     &models.ChatInfo{ID: "c1"},
		Messages: []models.Message{msg(models.RoleUser, "hi")},
		CanSend:  true,
	}
	term.ShowChat(chat)
	require.Contains(t, buf.String(), "Chat unlocked.")
	require.Contains(t, buf.String(), "[14:30] you: hi")

	chat.Messages = append(chat.Messages, msg(models.RoleAssistant, "hey you"))
	term.ShowChat(chat)
	require.Contains(t, buf.String(), "[14:30] her: hey you")
	assert.Equal(t, 1, strings.Count(buf.String(), "you: hi"), "prefix must not reprint")
	assert.Equal(t, 1, strings.Count(buf.String(), "Chat unlocked."))

	// Unchanged transcript renders nothing new.
	before := buf.String()
	term.ShowChat(chat)
	assert.Equal(t, before, buf.String())
}

func TestShowChatLimitLinePrintsOncePerLockout(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	locked := models.Chat{Chat: &models.ChatInfo{ID: "c1"}, CanSend: false}
	term.ShowChat(locked)
	term.ShowChat(locked)
	assert.Equal(t, 1, strings.Count(buf.String(), "Daily message limit reached."))

	term.ShowChat(models.Chat{Chat: &models.ChatInfo{ID: "c1"}, CanSend: true})
	term.ShowChat(locked)
	assert.Equal(t, 2, strings.Count(buf.String(), "Daily message limit reached."))
}

func TestSpinnerAndTypingAreEdgeTriggered(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	term.SetSpinner(false)
	assert.Empty(t, buf.String(), "releasing an idle spinner prints nothing")

	term.SetSpinner(true)
	term.SetSpinner(true)
	assert.Equal(t, 1, strings.Count(buf.String(), "Generating…"))

	term.SetSpinner(false)
	assert.Equal(t, 1, strings.Count(buf.String(), "Done."))

	term.SetTyping(true)
	term.SetTyping(true)
	assert.Equal(t, 1, strings.Count(buf.String(), "typing…"))

	term.SetTyping(false)
	term.SetTyping(true)
	assert.Equal(t, 2, strings.Count(buf.String(), "typing…"))
}

func TestCreateImageHintPrintsOnTransition(t *testing.T) {
	var buf strings.Builder
	term := NewTerminal(&buf)

	term.SetCreateImageVisible(false)
	assert.Empty(t, buf.String())

	term.SetCreateImageVisible(true)
	term.SetCreateImageVisible(true)
	assert.Equal(t, 1, strings.Count(buf.String(), "sweetdash generate"))
}
