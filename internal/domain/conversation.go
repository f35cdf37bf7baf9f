package domain

import "time"

// Conversation is a two-party chat. The participant pair is unordered.
type Conversation struct {
	ID            string    `json:"id"`
	Participant1  Identity  `json:"participant1"`
	Participant2  Identity  `json:"participant2"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`

	// Client-derived.
	Other  *Profile `json:"other,omitempty"`
	Unread int      `json:"unread,omitempty"`
}

// Involves reports whether id takes part in the conversation.
func (c *Conversation) Involves(id string) bool {
	return c.Participant1.ID == id || c.Participant2.ID == id
}

// Counterpart returns the participant that is not me.
func (c *Conversation) Counterpart(me Identity) Identity {
	if c.Participant1 == me {
		return c.Participant2
	}
	if c.Participant2 == me {
		return c.Participant1
	}
	// Same id under another role still counts as me.
	if c.Participant1.ID == me.ID {
		return c.Participant2
	}
	return c.Participant1
}

// HasPair reports whether the conversation is between a and b in either order.
func (c *Conversation) HasPair(a, b Identity) bool {
	return PairKey(c.Participant1, c.Participant2) == PairKey(a, b)
}
