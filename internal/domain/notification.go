package domain

import "time"

// Notification is a message addressed to a single receiver.
// SenderID is nil for system-generated notifications.
type Notification struct {
	ID         string    `json:"id"`
	ReceiverID string    `json:"receiver_id"`
	SenderID   *string   `json:"sender_id,omitempty"`
	Message    string    `json:"message"`
	Source     string    `json:"source"`
	Viewed     bool      `json:"viewed"`
	CreatedAt  time.Time `json:"created_at"`
}
