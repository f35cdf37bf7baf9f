package domain

import "time"

// Message is a chat message. Optimistic is client-only; ClientID is the
// sender's correlation id, stored so live inserts can be matched to pending sends.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderRole     Role      `json:"sender_role"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	IsDeleted      bool      `json:"is_deleted"`
	IsEdited       bool      `json:"is_edited"`

	Optimistic bool   `json:"-"`
	ClientID   string `json:"client_id,omitempty"`
}
