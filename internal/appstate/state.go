// Package appstate is the application state shared by the terminal client
// and the sync cores: who is signed in, which view is showing, and the flash
// line. It is built once in main and passed down explicitly.
package appstate

import (
	"sync"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/status"
)

// View names a top-level screen.
type View string

const (
	ViewChats         View = "chats"
	ViewConversation  View = "conversation"
	ViewNotifications View = "notifications"
	ViewSearch        View = "search"
	ViewHelp          View = "help"
)

// State implements notify.Presenter.
type State struct {
	Institute string
	Identity  domain.Identity
	Flash     Flash

	mu      sync.RWMutex
	view    View
	link    status.State
	changes chan struct{}
}

// New creates the state for a signed-in identity, starting on the chat list.
func New(institute string, id domain.Identity) *State {
	return &State{
		Institute: institute,
		Identity:  id,
		view:      ViewChats,
		link:      status.Idle,
		changes:   make(chan struct{}, 1),
	}
}

// Changes signals after the view, the link state or the flash changed.
func (s *State) Changes() <-chan struct{} {
	return s.changes
}

func (s *State) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// View returns the current view.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetView switches the current view.
func (s *State) SetView(v View) {
	s.mu.Lock()
	changed := s.view != v
	s.view = v
	s.mu.Unlock()
	if changed {
		s.signal()
	}
}

// Link returns the last reported feed link state.
func (s *State) Link() status.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link
}

// SetLink records the feed link state.
func (s *State) SetLink(l status.State) {
	s.mu.Lock()
	s.link = l
	s.mu.Unlock()
	s.signal()
}

// OnNotificationsView reports whether the notification list is showing.
func (s *State) OnNotificationsView() bool {
	return s.View() == ViewNotifications
}

// Alert flashes a new notification.
func (s *State) Alert(text string) {
	s.Flash.Info("New notification: " + text)
	s.signal()
}

// Fail flashes an error.
func (s *State) Fail(err error) {
	s.Flash.Err(err)
	s.signal()
}
