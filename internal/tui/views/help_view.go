package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/tui/ui"
)

// HelpView is the key and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{"c", "Chats"},
		{"n", "Notifications (marks all read)"},
		{"/", "Find people to chat with"},
		{":", "Command mode"},
		{"?", "This help"},
		{"Esc", "Back"},
		{"q", "Quit"},
	}},
	{"Chats", [][2]string{
		{"Enter", "Open conversation"},
		{"f", "Filter the list"},
		{"d", "Delete conversation"},
	}},
	{"Conversation", [][2]string{
		{"i", "Focus the composer"},
		{"Enter", "Send (in the composer)"},
		{"Esc", "Leave the composer, then the conversation"},
	}},
	{"Commands", [][2]string{
		{":chat <role:id>", "Start or resume a conversation"},
		{":edit <text>", "Edit your last message"},
		{":unsend", "Remove your last message"},
		{":read", "Mark all notifications read"},
		{":delete", "Delete the open or selected conversation"},
		{":q", "Quit"},
	}},
}

func (hv *HelpView) render() {
	kc := ui.ColorName(hv.theme.MenuKeyColor)
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-18s[-:-:-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
