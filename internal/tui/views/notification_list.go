package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/tui/ui"
)

// NotificationList shows the notifications of the signed-in identity,
// newest first, with unviewed ones highlighted.
type NotificationList struct {
	*tview.Table
	theme *ui.Theme
	items []domain.Notification
	now   func() time.Time
}

// NewNotificationList creates the notification table.
func NewNotificationList(theme *ui.Theme) *NotificationList {
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

	nl := &NotificationList{
		Table: table,
		theme: theme,
		now:   time.Now,
	}
	nl.render()
	return nl
}

// Name implements ui.Component.
func (nl *NotificationList) Name() string { return "Notifications" }

// Hints implements ui.Component.
func (nl *NotificationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "c", Description: "Chats"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update replaces the list.
func (nl *NotificationList) Update(items []domain.Notification) {
	nl.items = items
	nl.render()
	if len(items) > 0 {
		nl.Select(1, 0)
	}
}

func (nl *NotificationList) render() {
	nl.Clear()
	headers := []struct {
		text string
		exp  int
	}{
		{" ", 0},
		{" FROM", 0},
		{" MESSAGE", 1},
		{" SOURCE", 0},
		{" WHEN", 0},
	}
	for col, h := range headers {
		nl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(nl.theme.TableHeaderFg).
			SetBackgroundColor(nl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := nl.now()
	unviewed := 0
	for i, n := range nl.items {
		row := i + 1
		fg := nl.theme.FgColor
		mark := " "
		if !n.Viewed {
			fg = nl.theme.UnreadColor
			mark = "●"
			unviewed++
		}
		from := "system"
		if n.SenderID != nil {
			from = *n.SenderID
		}
		nl.SetCell(row, 0, tview.NewTableCell(mark).SetTextColor(nl.theme.UnreadColor))
		nl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(from)).SetTextColor(fg))
		nl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(n.Message))).SetExpansion(1).SetTextColor(fg))
		nl.SetCell(row, 3, tview.NewTableCell(" "+tview.Escape(n.Source)).SetTextColor(nl.theme.FgColor))
		nl.SetCell(row, 4, tview.NewTableCell(" "+formatTime(n.CreatedAt, now)).SetAlign(tview.AlignRight).SetTextColor(nl.theme.FgColor))
	}
	nl.SetTitle(fmt.Sprintf(" Notifications (%d, %d new) ", len(nl.items), unviewed))
}
