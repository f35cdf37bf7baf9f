package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// MenuRows is how many hints fit in one menu column.
const MenuRows = 4

const menuGap = 2

// Menu lays keyboard hints out in columns beside the header.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates an empty hint menu.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update fills the columns top to bottom. View hints keep their order and
// come before global ones.
func (m *Menu) Update(hints []MenuHint) {
	m.SetText(m.render(hints))
}

func (m *Menu) render(hints []MenuHint) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + MenuRows - 1) / MenuRows
	widths := make([]int, cols)
	for i, h := range hints {
		if w := hintWidth(h); w > widths[i/MenuRows] {
			widths[i/MenuRows] = w
		}
	}

	key := ColorName(m.theme.MenuKeyColor)
	muted := ColorName(m.theme.MutedColor)
	var b strings.Builder
	for row := 0; row < MenuRows && row < len(hints); row++ {
		for col := 0; col < cols; col++ {
			i := col*MenuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			color := key
			if h.Global {
				color = muted
			}
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", color, tview.Escape(h.Key), tview.Escape(h.Description))
			if col < cols-1 {
				b.WriteString(strings.Repeat(" ", widths[col]-hintWidth(h)+menuGap))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func hintWidth(h MenuHint) int {
	return tview.TaggedStringWidth(fmt.Sprintf("<%s> %s", tview.Escape(h.Key), tview.Escape(h.Description)))
}
