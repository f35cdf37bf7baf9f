package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/appstate"
	"github.com/matheus3301/campus/internal/status"
)

// HeaderData is what the header shows.
type HeaderData struct {
	Institute string
	Identity  string
	Daemon    string
	Link      status.State
	Unread    int
	Stack     []appstate.View
}

// Header shows who is signed in where, the daemon and feed state, the
// notification badge and the breadcrumb of the page stack.
type Header struct {
	*tview.TextView
	theme *Theme
}

// NewHeader creates the header panel.
func NewHeader(theme *Theme) *Header {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &Header{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders d.
func (h *Header) Update(d HeaderData) {
	h.Clear()

	fg := ColorName(h.theme.FgColor)
	val := ColorName(h.theme.CounterColor)
	title := ColorName(h.theme.TitleColor)

	daemon := d.Daemon
	if daemon == "" {
		daemon = "-"
	}

	_, _ = fmt.Fprintf(h, "[%s::b]campus[-:-:-]  [%s::b]Institute:[-:-:-] [%s]%s[-]  [%s::b]You:[-:-:-] [%s]%s[-]\n",
		title, fg, val, tview.Escape(d.Institute), fg, val, tview.Escape(d.Identity))
	_, _ = fmt.Fprintf(h, "[%s::b]Daemon:[-:-:-] [%s]%s[-]  [%s::b]Feed:[-:-:-] %s  %s\n",
		fg, val, daemon, fg, h.link(d.Link), h.badge(d.Unread))
	_, _ = fmt.Fprint(h, h.crumbs(d.Stack))
}

func (h *Header) link(s status.State) string {
	color := h.theme.DownColor
	switch s {
	case status.Live:
		color = h.theme.LiveColor
	case status.Connecting, status.Idle:
		color = h.theme.FlashWarnColor
	}
	return fmt.Sprintf("[%s]%s[-]", ColorName(color), s)
}

func (h *Header) badge(n int) string {
	if n <= 0 {
		return fmt.Sprintf("[%s]no new notifications[-]", ColorName(h.theme.MutedColor))
	}
	return fmt.Sprintf("[%s::b]%d new notification%s[-:-:-]", ColorName(h.theme.UnreadColor), n, plural(n))
}

func (h *Header) crumbs(stack []appstate.View) string {
	parts := make([]string, 0, len(stack))
	for i, v := range stack {
		fg, bg, attr := h.theme.CrumbInactiveFg, h.theme.CrumbInactiveBg, ""
		if i == len(stack)-1 {
			fg, bg, attr = h.theme.CrumbActiveFg, h.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", ColorName(fg), ColorName(bg), attr, v))
	}
	return strings.Join(parts, " > ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
