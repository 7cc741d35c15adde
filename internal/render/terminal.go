// Package render is the terminal presentation sink for the dashboard
// controller. Rendering is idempotent: pushing an unchanged state produces no
// output, so overlapping pollers never duplicate lines.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/digkill/SweetheartDash/internal/models"
)

type Terminal struct {
	mu  sync.Mutex
	out io.Writer

	lastAccount    string
	lastInfluencer string
	lastGallery    string
	shownMessages  int
	chatUnlocked   bool
	limitShown     bool
	createVisible  bool
	createKnown    bool
	spinnerOn      bool
	typingOn       bool
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) ShowAccount(account models.Account) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := string(account.Plan) + "/" + strconv.Itoa(account.Credits)
	if key == t.lastAccount {
		return
	}
	t.lastAccount = key

	table := tablewriter.NewWriter(t.out)
	table.SetHeader([]string{"PLAN", "CREDITS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.Append([]string{string(account.Plan), strconv.Itoa(account.Credits)})
	table.Render()

	if account.Plan != models.PlanPro {
		fmt.Fprintln(t.out, "Upgrade available: run `sweetdash upgrade`.")
	}
}

func (t *Terminal) ShowInfluencer(influencer *models.Influencer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := influencerKey(influencer)
	if key == t.lastInfluencer {
		return
	}
	t.lastInfluencer = key

	if influencer == nil {
		fmt.Fprintln(t.out, "No influencer yet. Run `sweetdash create` to make one.")
		return
	}

	fmt.Fprintf(t.out, "%s", influencer.Name)
	if influencer.Vibe != "" {
		fmt.Fprintf(t.out, " — vibe: %s", influencer.Vibe)
	}
	fmt.Fprintln(t.out)

	if influencer.InitialImageURL != "" {
		fmt.Fprintf(t.out, "Image: %s\n", influencer.InitialImageURL)
	} else {
		fmt.Fprintln(t.out, "Image: generating…")
	}
}

func influencerKey(influencer *models.Influencer) string {
	if influencer == nil {
		return "none"
	}
	return strings.Join([]string{
		influencer.Name,
		influencer.Vibe,
		influencer.InitialImageURL,
		strconv.FormatBool(influencer.IsLocked),
	}, "\x00")
}

func (t *Terminal) ShowGallery(gallery models.Gallery) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []string
	for _, img := range gallery.Images {
		keys = append(keys, img.URL)
	}
	key := strings.Join(keys, "\x00")
	if key == t.lastGallery {
		return
	}
	t.lastGallery = key

	if gallery.Count() == 0 {
		return
	}

	table := tablewriter.NewWriter(t.out)
	table.SetHeader([]string{"#", "IMAGE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	for i, img := range gallery.Images {
		table.Append([]string{strconv.Itoa(i + 1), img.URL})
	}
	table.Render()
}

// ShowChat prints only the messages that have not been printed yet; the
// transcript is append-only, so the already-shown prefix never changes.
func (t *Terminal) ShowChat(chat models.Chat) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if chat.Chat == nil {
		t.chatUnlocked = false
		t.shownMessages = 0
		return
	}

	if !t.chatUnlocked {
		t.chatUnlocked = true
		fmt.Fprintln(t.out, "Chat unlocked.")
	}

	if len(chat.Messages) < t.shownMessages {
		// Transcript shrank (new chat); start over.
		t.shownMessages = 0
	}

	for _, msg := range chat.Messages[t.shownMessages:] {
		when := msg.CreatedAt.Format("15:04")
		switch msg.Role {
		case models.RoleAssistant:
			fmt.Fprintf(t.out, "[%s] her: %s\n", when, msg.Content)
		default:
			fmt.Fprintf(t.out, "[%s] you: %s\n", when, msg.Content)
		}
	}
	t.shownMessages = len(chat.Messages)

	if !chat.CanSend && !t.limitShown {
		t.limitShown = true
		fmt.Fprintln(t.out, "Daily message limit reached.")
	}
	if chat.CanSend {
		t.limitShown = false
	}
}

func (t *Terminal) SetCreateImageVisible(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.createKnown && visible == t.createVisible {
		return
	}
	t.createKnown = true
	t.createVisible = visible

	if visible {
		fmt.Fprintln(t.out, "You can generate more images: run `sweetdash generate`.")
	}
}

func (t *Terminal) SetSpinner(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if on == t.spinnerOn {
		return
	}
	t.spinnerOn = on

	if on {
		fmt.Fprintln(t.out, "Generating…")
	} else {
		fmt.Fprintln(t.out, "Done.")
	}
}

func (t *Terminal) SetTyping(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if on == t.typingOn {
		return
	}
	t.typingOn = on

	if on {
		fmt.Fprintln(t.out, "typing…")
	}
}

func (t *Terminal) Notice(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, text)
}
