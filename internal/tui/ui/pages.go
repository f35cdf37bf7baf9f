package ui

import (
	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/appstate"
)

// Pages is a stack of views over tview.Pages. Every view is added once with
// Add; Push and Pop only change which one is in front.
type Pages struct {
	*tview.Pages
	stack    []appstate.View
	onChange func(stack []appstate.View)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// Add registers a view. It stays hidden until pushed.
func (p *Pages) Add(v appstate.View, item tview.Primitive) {
	p.AddPage(string(v), item, true, false)
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []appstate.View)) {
	p.onChange = fn
}

// Push shows v on top of the stack. Pushing the view already on top is a
// no-op; pushing one that is deeper in the stack unwinds to it.
func (p *Pages) Push(v appstate.View) {
	if p.Current() == v {
		return
	}
	for i, s := range p.stack {
		if s == v {
			for _, hidden := range p.stack[i+1:] {
				p.HidePage(string(hidden))
			}
			p.stack = p.stack[:i+1]
			p.front(v)
			return
		}
	}
	if top := p.Current(); top != "" {
		p.HidePage(string(top))
	}
	p.stack = append(p.stack, v)
	p.front(v)
}

// Pop removes the top view and shows the previous one. The bottom view is
// never popped. Returns the popped view, or "" if nothing was popped.
func (p *Pages) Pop() appstate.View {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(string(top))
	p.stack = p.stack[:len(p.stack)-1]
	p.front(p.stack[len(p.stack)-1])
	return top
}

// Reset clears the stack and shows only v.
func (p *Pages) Reset(v appstate.View) {
	for _, s := range p.stack {
		p.HidePage(string(s))
	}
	p.stack = []appstate.View{v}
	p.front(v)
}

// Current returns the view on top, or "" when empty.
func (p *Pages) Current() appstate.View {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the stack, bottom first.
func (p *Pages) Stack() []appstate.View {
	s := make([]appstate.View, len(p.stack))
	copy(s, p.stack)
	return s
}

func (p *Pages) front(v appstate.View) {
	p.ShowPage(string(v))
	p.SendToFront(string(v))
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
