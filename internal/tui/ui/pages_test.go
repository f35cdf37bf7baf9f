package ui

import (
	"testing"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"

	"github.com/matheus3301/campus/internal/appstate"
)

func newTestPages() (*Pages, *[][]appstate.View) {
	p := NewPages()
	for _, v := range []appstate.View{appstate.ViewChats, appstate.ViewConversation, appstate.ViewNotifications, appstate.ViewHelp} {
		p.Add(v, tview.NewBox())
	}
	var seen [][]appstate.View
	p.SetOnChange(func(stack []appstate.View) { seen = append(seen, stack) })
	return p, &seen
}

func TestPushPop(t *testing.T) {
	p, seen := newTestPages()
	p.Reset(appstate.ViewChats)
	p.Push(appstate.ViewConversation)
	p.Push(appstate.ViewHelp)

	assert.Equal(t, appstate.ViewHelp, p.Current())
	front, _ := p.GetFrontPage()
	assert.Equal(t, string(appstate.ViewHelp), front)

	assert.Equal(t, appstate.ViewHelp, p.Pop())
	assert.Equal(t, appstate.ViewConversation, p.Current())
	assert.Equal(t, appstate.ViewConversation, p.Pop())

	// The bottom view stays.
	assert.Equal(t, appstate.View(""), p.Pop())
	assert.Equal(t, appstate.ViewChats, p.Current())
	assert.Len(t, *seen, 5)
}

func TestPushExistingUnwinds(t *testing.T) {
	p, _ := newTestPages()
	p.Reset(appstate.ViewChats)
	p.Push(appstate.ViewConversation)
	p.Push(appstate.ViewHelp)

	p.Push(appstate.ViewChats)
	assert.Equal(t, []appstate.View{appstate.ViewChats}, p.Stack())

	p.Push(appstate.ViewNotifications)
	p.Push(appstate.ViewNotifications)
	assert.Equal(t, []appstate.View{appstate.ViewChats, appstate.ViewNotifications}, p.Stack())
}
