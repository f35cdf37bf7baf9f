package ui

// MenuHint describes a keyboard shortcut for the menu.
type MenuHint struct {
	Key         string
	Description string
	// Global hints work on every view and are drawn muted.
	Global bool
}

// Component is a view that can be pushed on the page stack.
type Component interface {
	Name() string
	Hints() []MenuHint
}
