package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/tui/ui"
)

// ConversationView is the open conversation: the message timeline above a
// composer. The composer mirrors the chat input buffer.
type ConversationView struct {
	*tview.Flex
	theme    *ui.Theme
	me       domain.Identity
	timeline *tview.TextView
	composer *tview.InputField
	title    string
	now      func() time.Time
}

// NewConversationView creates the conversation view for me.
func NewConversationView(theme *ui.Theme, me domain.Identity) *ConversationView {
	timeline := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	timeline.SetBorder(true)
	timeline.SetBorderColor(theme.BorderColor)
	timeline.SetBackgroundColor(theme.BgColor)
	timeline.SetTextColor(theme.FgColor)
	timeline.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Message (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(timeline, 0, 1, true).
		AddItem(composer, 3, 0, false)

	return &ConversationView{
		Flex:     flex,
		theme:    theme,
		me:       me,
		timeline: timeline,
		composer: composer,
		title:    "Conversation",
		now:      time.Now,
	}
}

// Name implements ui.Component.
func (cv *ConversationView) Name() string { return cv.title }

// Hints implements ui.Component.
func (cv *ConversationView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Enter", Description: "Send"},
		{Key: "Esc", Description: "Back"},
		{Key: ":edit", Description: "Edit last"},
		{Key: ":unsend", Description: "Unsend last"},
	}
}

// SetConversation sets the title from the counterpart.
func (cv *ConversationView) SetConversation(c domain.Conversation) {
	name, role := counterpartName(c, cv.me)
	cv.title = name
	cv.timeline.SetTitle(fmt.Sprintf(" %s (%s) ", tview.Escape(sanitizeForTerminal(name)), role))
}

// BindInput wires the composer: every edit goes to onChange and Enter calls
// onSend.
func (cv *ConversationView) BindInput(onChange func(text string), onSend func()) {
	cv.composer.SetChangedFunc(onChange)
	cv.composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && onSend != nil {
			onSend()
		}
	})
}

// SyncInput writes text into the composer if it differs, as after a send
// cleared the buffer or a rollback restored it.
func (cv *ConversationView) SyncInput(text string) {
	if cv.composer.GetText() != text {
		cv.composer.SetText(text)
	}
}

// Update renders the timeline. sending dims the composer while a send is in
// flight.
func (cv *ConversationView) Update(msgs []domain.Message, sending bool) {
	cv.timeline.Clear()
	_, _ = fmt.Fprint(cv.timeline, cv.renderTimeline(msgs))
	cv.timeline.ScrollToEnd()

	if sending {
		cv.composer.SetTitle(" Sending... ")
	} else {
		cv.composer.SetTitle(" Message (i to focus) ")
	}
}

func (cv *ConversationView) renderTimeline(msgs []domain.Message) string {
	if len(msgs) == 0 {
		return fmt.Sprintf("[%s]No messages yet.[-]", ui.ColorName(cv.theme.MutedColor))
	}
	now := cv.now()
	muted := ui.ColorName(cv.theme.MutedColor)
	var b strings.Builder
	for _, m := range msgs {
		sender := m.SenderID
		color := cv.theme.FgColor
		if m.SenderID == cv.me.ID {
			sender = "You"
			color = cv.theme.MineColor
		}
		var marks []string
		if m.Optimistic {
			marks = append(marks, "sending")
			color = cv.theme.PendingColor
		}
		if m.IsEdited {
			marks = append(marks, "edited")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = fmt.Sprintf(" [%s](%s)[-]", muted, strings.Join(marks, ", "))
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [%s]%s[-]%s\n%s\n\n",
			ui.ColorName(color), tview.Escape(sender),
			muted, formatTime(m.CreatedAt, now), suffix,
			tview.Escape(sanitizeForTerminal(m.Text)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Timeline returns the timeline text view.
func (cv *ConversationView) Timeline() *tview.TextView {
	return cv.timeline
}

// Composer returns the composer input field.
func (cv *ConversationView) Composer() *tview.InputField {
	return cv.composer
}
