package views

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/tui/ui"
)

// ConversationList is the chat list: counterpart, role, unread count and
// the time of the last message.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	me      domain.Identity
	convs   []domain.Conversation
	visible []string
	filter  string
	now     func() time.Time
}

// NewConversationList creates the chat list for me.
func NewConversationList(theme *ui.Theme, me domain.Identity) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
		me:    me,
		now:   time.Now,
	}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Chats" }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Find people"},
		{Key: "f", Description: "Filter"},
		{Key: "d", Description: "Delete"},
		{Key: "n", Description: "Notifications"},
	}
}

// Update replaces the list, keeping the selection on the same conversation
// when it is still shown.
func (cl *ConversationList) Update(convs []domain.Conversation) {
	selected := cl.SelectedID()
	cl.convs = convs
	cl.render()
	cl.selectID(selected)
}

// SetFilter narrows the list to counterparts whose name or identity contains
// filter. An empty filter shows everything.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
	if len(cl.visible) > 0 {
		cl.Select(1, 0)
	}
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string {
	return cl.filter
}

// SelectedID returns the id of the selected conversation, or "".
func (cl *ConversationList) SelectedID() string {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(cl.visible) {
		return ""
	}
	return cl.visible[idx]
}

// Visible returns the ids shown, in order.
func (cl *ConversationList) Visible() []string {
	out := make([]string, len(cl.visible))
	copy(out, cl.visible)
	return out
}

func (cl *ConversationList) selectID(id string) {
	for i, v := range cl.visible {
		if v == id {
			cl.Select(i+1, 0)
			return
		}
	}
	if len(cl.visible) > 0 {
		cl.Select(1, 0)
	}
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 2},
		{" ROLE", 0},
		{" UNREAD", 0},
		{" LAST", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	now := cl.now()
	row := 1
	for _, c := range cl.convs {
		name, role := counterpartName(c, cl.me)
		if cl.filter != "" && !containsFold(name, cl.filter) && !containsFold(c.Counterpart(cl.me).String(), cl.filter) {
			continue
		}
		cl.visible = append(cl.visible, c.ID)

		fg := cl.theme.FgColor
		unread := ""
		if c.Unread > 0 {
			fg = cl.theme.UnreadColor
			unread = strconv.Itoa(c.Unread)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(2).SetTextColor(fg))
		cl.SetCell(row, 1, tview.NewTableCell(" "+string(role)).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(cl.theme.UnreadColor).SetAttributes(tcell.AttrBold))
		cl.SetCell(row, 3, tview.NewTableCell(" "+formatTime(c.LastMessageAt, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.convs), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.convs)))
	}
}
