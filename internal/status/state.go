package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/campus/internal/bus"
)

// State is a runtime state of a daemon or a client feed link.
type State string

// Daemon states.
const (
	Booting  State = "BOOTING"
	Ready    State = "READY"
	Degraded State = "DEGRADED"
	Stopping State = "STOPPING"
	Error    State = "ERROR"
)

// Link states of a client feed subscription.
const (
	Idle         State = "IDLE"
	Connecting   State = "CONNECTING"
	Live         State = "LIVE"
	Reconnecting State = "RECONNECTING"
	Closed       State = "CLOSED"
)

// Transitions lists, for each state, the states it may move to.
type Transitions map[State][]State

// DaemonTransitions governs campusd.
var DaemonTransitions = Transitions{
	Booting:  {Ready, Degraded, Error},
	Ready:    {Degraded, Stopping, Error},
	Degraded: {Ready, Stopping, Error},
	Stopping: {},
	Error:    {Booting, Stopping},
}

// LinkTransitions governs a remote feed subscription.
var LinkTransitions = Transitions{
	Idle:         {Connecting, Closed},
	Connecting:   {Live, Reconnecting, Closed},
	Live:         {Reconnecting, Closed},
	Reconnecting: {Connecting, Closed},
	Closed:       {},
}

// Machine tracks and enforces state transitions and publishes each change
// on the bus as "<kind>".
type Machine struct {
	mu      sync.RWMutex
	current State
	table   Transitions
	kind    string
	bus     *bus.Bus
}

// NewMachine creates a machine in the initial state. kind is the bus event
// kind published on every transition, e.g. "daemon.status_changed".
func NewMachine(initial State, table Transitions, kind string, b *bus.Bus) *Machine {
	return &Machine{
		current: initial,
		table:   table,
		kind:    kind,
		bus:     b,
	}
}

// NewDaemonMachine creates the campusd machine starting in Booting.
func NewDaemonMachine(b *bus.Bus) *Machine {
	return NewMachine(Booting, DaemonTransitions, bus.NamespaceDaemon+"status_changed", b)
}

// NewLinkMachine creates a feed link machine starting in Idle.
func NewLinkMachine(b *bus.Bus) *Machine {
	return NewMachine(Idle, LinkTransitions, bus.NamespaceLink+"status_changed", b)
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := m.table[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      m.kind,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// TransitionIf moves to `to` only when the machine is currently in one of from.
// It reports whether the transition happened.
func (m *Machine) TransitionIf(to State, from ...State) bool {
	m.mu.RLock()
	cur := m.current
	m.mu.RUnlock()
	if !slices.Contains(from, cur) {
		return false
	}
	return m.Transition(to) == nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
