package chat

import (
	"github.com/matheus3301/campus/internal/status"
)

// Send states of an outgoing message.
const (
	Composing  status.State = "COMPOSING"
	Optimistic status.State = "OPTIMISTIC"
	Confirmed  status.State = "CONFIRMED"
	RolledBack status.State = "ROLLED_BACK"
)

// SendTransitions governs one outgoing message.
var SendTransitions = status.Transitions{
	Composing:  {Optimistic},
	Optimistic: {Confirmed, RolledBack},
	Confirmed:  {},
	RolledBack: {},
}

// pendingSend is an outgoing message between local echo and the backend
// answer. It is keyed by the client correlation id; ServerID is filled by
// whichever arrives first, the insert result or the live insert event.
type pendingSend struct {
	ClientID       string
	ConversationID string
	Input          string
	ServerID       string
	state          *status.Machine
}

func (p *pendingSend) State() status.State {
	return p.state.Current()
}

// ledger maps client correlation ids to in-flight sends.
type ledger struct {
	entries map[string]*pendingSend
}

func newLedger() *ledger {
	return &ledger{entries: make(map[string]*pendingSend)}
}

func (l *ledger) open(clientID, conversationID, input string) (*pendingSend, error) {
	p := &pendingSend{
		ClientID:       clientID,
		ConversationID: conversationID,
		Input:          input,
		state:          status.NewMachine(Composing, SendTransitions, "chat.send", nil),
	}
	if err := p.state.Transition(Optimistic); err != nil {
		return nil, err
	}
	l.entries[clientID] = p
	return p, nil
}

func (l *ledger) get(clientID string) (*pendingSend, bool) {
	p, ok := l.entries[clientID]
	return p, ok
}

// resolve records the server id of a pending send.
func (l *ledger) resolve(clientID, serverID string) {
	if p, ok := l.entries[clientID]; ok && p.ServerID == "" {
		p.ServerID = serverID
	}
}

// finish moves a pending send to its final state and forgets it.
func (l *ledger) finish(clientID string, to status.State) error {
	p, ok := l.entries[clientID]
	if !ok {
		return nil
	}
	delete(l.entries, clientID)
	return p.state.Transition(to)
}

func (l *ledger) len() int {
	return len(l.entries)
}
