package status

import (
	"testing"

	"github.com/matheus3301/campus/internal/bus"
)

func TestInitialState(t *testing.T) {
	if s := NewDaemonMachine(nil).Current(); s != Booting {
		t.Errorf("daemon initial state = %s, want BOOTING", s)
	}
	if s := NewLinkMachine(nil).Current(); s != Idle {
		t.Errorf("link initial state = %s, want IDLE", s)
	}
}

func TestDaemonTransitions(t *testing.T) {
	tests := []struct {
		path []State
	}{
		{[]State{Ready, Stopping}},
		{[]State{Degraded, Ready, Degraded, Stopping}},
		{[]State{Error, Booting, Ready}},
	}
	for _, tt := range tests {
		m := NewDaemonMachine(nil)
		for _, s := range tt.path {
			if err := m.Transition(s); err != nil {
				t.Fatalf("path %v: Transition(%s) error = %v", tt.path, s, err)
			}
		}
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewDaemonMachine(nil)
	if err := m.Transition(Stopping); err == nil {
		t.Error("Transition(BOOTING -> STOPPING) should fail")
	}
	if m.Current() != Booting {
		t.Errorf("state = %s, want BOOTING (unchanged)", m.Current())
	}
}

func TestStoppingIsTerminal(t *testing.T) {
	m := NewDaemonMachine(nil)
	_ = m.Transition(Ready)
	_ = m.Transition(Stopping)
	for _, to := range []State{Booting, Ready, Degraded, Error} {
		if err := m.Transition(to); err == nil {
			t.Errorf("Transition(STOPPING -> %s) should fail", to)
		}
	}
}

// TestLinkReconnectCycle walks a feed link through a drop and recovery:
// IDLE → CONNECTING → LIVE → RECONNECTING → CONNECTING → LIVE → CLOSED
func TestLinkReconnectCycle(t *testing.T) {
	m := NewLinkMachine(nil)
	for _, s := range []State{Connecting, Live, Reconnecting, Connecting, Live, Closed} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if err := m.Transition(Connecting); err == nil {
		t.Error("CLOSED must be terminal")
	}
}

func TestTransitionIf(t *testing.T) {
	m := NewLinkMachine(nil)
	if m.TransitionIf(Live, Connecting) {
		t.Error("TransitionIf should not fire from IDLE")
	}
	_ = m.Transition(Connecting)
	if !m.TransitionIf(Live, Connecting, Reconnecting) {
		t.Error("TransitionIf(LIVE from CONNECTING) should fire")
	}
	if m.Current() != Live {
		t.Errorf("state = %s, want LIVE", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(bus.NamespaceDaemon, 10)
	defer unsub()

	m := NewDaemonMachine(b)
	if err := m.Transition(Ready); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "daemon.status_changed" {
		t.Errorf("event kind = %q, want daemon.status_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != Ready {
		t.Errorf("change = %v -> %v, want BOOTING -> READY", change.From, change.To)
	}
}
