package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/appstate"
)

// FlashBar displays the current flash message.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders msg. A nil message clears the bar.
func (fb *FlashBar) Update(msg *appstate.FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	var color string
	switch msg.Level {
	case appstate.FlashWarn:
		color = ColorName(fb.theme.FlashWarnColor)
	case appstate.FlashErr:
		color = ColorName(fb.theme.FlashErrColor)
	default:
		color = ColorName(fb.theme.FlashInfoColor)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", color, tview.Escape(msg.Text))
}
