package rpc

import (
	"time"

	"github.com/matheus3301/campus/internal/domain"
)

type Empty struct{}

type StatusRequest struct{}

type StatusResponse struct {
	Institute   string `json:"institute"`
	Status      string `json:"status"`
	Dialect     string `json:"dialect"`
	UptimeMs    int64  `json:"uptime_ms"`
	Subscribers int    `json:"subscribers"`
	Dropped     int64  `json:"dropped"`
}

type CreateNotificationRequest struct {
	Notification domain.Notification `json:"notification"`
}

type NotificationResponse struct {
	Notification domain.Notification `json:"notification"`
}

type ListNotificationsRequest struct {
	ReceiverID string `json:"receiver_id"`
	UnreadOnly bool   `json:"unread_only"`
	Limit      int    `json:"limit"`
}

type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

type ReceiverRequest struct {
	ReceiverID string `json:"receiver_id"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ListConversationsRequest struct {
	UserID string `json:"user_id"`
}

type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

type PairRequest struct {
	A domain.Identity `json:"a"`
	B domain.Identity `json:"b"`
}

type ConversationResponse struct {
	Conversation domain.Conversation `json:"conversation"`
	Created      bool                `json:"created,omitempty"`
}

type ListMessagesRequest struct {
	ConversationID string `json:"conversation_id"`
}

type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

type CountUnreadSinceRequest struct {
	ConversationID string    `json:"conversation_id"`
	Since          time.Time `json:"since"`
	ExcludeSender  string    `json:"exclude_sender"`
}

type SendMessageRequest struct {
	Message domain.Message `json:"message"`
}

type EditMessageRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MessageResponse struct {
	Message domain.Message `json:"message"`
}

type GetProfileRequest struct {
	Identity domain.Identity `json:"identity"`
}

type ProfileResponse struct {
	Profile domain.Profile `json:"profile"`
}

type SearchProfilesRequest struct {
	Query string        `json:"query"`
	Roles []domain.Role `json:"roles,omitempty"`
	Limit int           `json:"limit"`
}

type SearchProfilesResponse struct {
	Profiles []domain.Profile `json:"profiles"`
}

type UpsertProfileRequest struct {
	Profile domain.Profile `json:"profile"`
}

type WatchRequest struct {
	Topic domain.Topic `json:"topic"`
}
