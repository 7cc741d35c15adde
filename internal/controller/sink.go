package controller

import "github.com/digkill/SweetheartDash/internal/models"

// Sink receives rendered dashboard state. Implementations must be idempotent:
// pushing the same state twice may not duplicate output or re-trigger side
// effects. A nil influencer or chat means the corresponding empty state.
type Sink interface {
	ShowAccount(account models.Account)
	ShowInfluencer(influencer *models.Influencer)
	ShowGallery(gallery models.Gallery)
	ShowChat(chat models.Chat)
	SetCreateImageVisible(visible bool)
	SetSpinner(on bool)
	SetTyping(on bool)
	Notice(text string)
}

// NopSink implements Sink with no-ops. Embed it to pick up only the
// capabilities a presentation target actually has.
type NopSink struct{}

func (NopSink) ShowAccount(models.Account)       {}
func (NopSink) ShowInfluencer(*models.Influencer) {}
func (NopSink) ShowGallery(models.Gallery)       {}
func (NopSink) ShowChat(models.Chat)             {}
func (NopSink) SetCreateImageVisible(bool)       {}
func (NopSink) SetSpinner(bool)                  {}
func (NopSink) SetTyping(bool)                   {}
func (NopSink) Notice(string)                    {}
