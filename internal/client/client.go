package client

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/rpc"
)

// Client wraps the gRPC connection to campusd. It implements notify.Backend,
// chat.Backend and realtime.Feed.
type Client struct {
	conn          *grpc.ClientConn
	Session       *rpc.SessionClient
	Notifications *rpc.NotificationClient
	Chat          *rpc.ChatClient
	Feed          *rpc.FeedClient

	bus    *bus.Bus
	logger *zap.Logger
}

// New dials the daemon's Unix domain socket. Link state changes of feed
// subscriptions are published on b when it is not nil.
func New(socketPath string, b *bus.Bus, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{
		conn:          conn,
		Session:       rpc.NewSessionClient(conn),
		Notifications: rpc.NewNotificationClient(conn),
		Chat:          rpc.NewChatClient(conn),
		Feed:          rpc.NewFeedClient(conn),
		bus:           b,
		logger:        logger.Named("client"),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	resp, err := c.Session.Status(ctx, &rpc.StatusRequest{})
	return resp, rpc.FromStatus(err)
}

func (c *Client) CreateNotification(ctx context.Context, n *domain.Notification) error {
	resp, err := c.Notifications.Create(ctx, &rpc.CreateNotificationRequest{Notification: *n})
	if err != nil {
		return rpc.FromStatus(err)
	}
	*n = resp.Notification
	return nil
}

func (c *Client) ListNotifications(ctx context.Context, receiverID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	resp, err := c.Notifications.List(ctx, &rpc.ListNotificationsRequest{ReceiverID: receiverID, UnreadOnly: unreadOnly, Limit: limit})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Notifications, nil
}

func (c *Client) CountUnreadNotifications(ctx context.Context, receiverID string) (int, error) {
	resp, err := c.Notifications.CountUnread(ctx, &rpc.ReceiverRequest{ReceiverID: receiverID})
	if err != nil {
		return 0, rpc.FromStatus(err)
	}
	return resp.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.Notifications.MarkRead(ctx, &rpc.IDRequest{ID: id})
	return rpc.FromStatus(err)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, receiverID string) (int, error) {
	resp, err := c.Notifications.MarkAllRead(ctx, &rpc.ReceiverRequest{ReceiverID: receiverID})
	if err != nil {
		return 0, rpc.FromStatus(err)
	}
	return resp.Count, nil
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	_, err := c.Notifications.Delete(ctx, &rpc.IDRequest{ID: id})
	return rpc.FromStatus(err)
}

func (c *Client) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	resp, err := c.Chat.ListConversations(ctx, &rpc.ListConversationsRequest{UserID: userID})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Conversations, nil
}

func (c *Client) FindConversation(ctx context.Context, a, b domain.Identity) (*domain.Conversation, error) {
	resp, err := c.Chat.FindConversation(ctx, &rpc.PairRequest{A: a, B: b})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return &resp.Conversation, nil
}

func (c *Client) CreateConversation(ctx context.Context, a, b domain.Identity) (*domain.Conversation, bool, error) {
	resp, err := c.Chat.CreateConversation(ctx, &rpc.PairRequest{A: a, B: b})
	if err != nil {
		return nil, false, rpc.FromStatus(err)
	}
	return &resp.Conversation, resp.Created, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	_, err := c.Chat.DeleteConversation(ctx, &rpc.IDRequest{ID: id})
	return rpc.FromStatus(err)
}

func (c *Client) GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	resp, err := c.Chat.GetProfile(ctx, &rpc.GetProfileRequest{Identity: id})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return &resp.Profile, nil
}

func (c *Client) SearchProfiles(ctx context.Context, query string, roles []domain.Role, limit int) ([]domain.Profile, error) {
	resp, err := c.Chat.SearchProfiles(ctx, &rpc.SearchProfilesRequest{Query: query, Roles: roles, Limit: limit})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Profiles, nil
}

func (c *Client) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	_, err := c.Chat.UpsertProfile(ctx, &rpc.UpsertProfileRequest{Profile: *p})
	return rpc.FromStatus(err)
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	resp, err := c.Chat.ListMessages(ctx, &rpc.ListMessagesRequest{ConversationID: conversationID})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Messages, nil
}

func (c *Client) CountUnreadSince(ctx context.Context, conversationID string, since time.Time, excludeSender string) (int, error) {
	resp, err := c.Chat.CountUnreadSince(ctx, &rpc.CountUnreadSinceRequest{
		ConversationID: conversationID,
		Since:          since,
		ExcludeSender:  excludeSender,
	})
	if err != nil {
		return 0, rpc.FromStatus(err)
	}
	return resp.Count, nil
}

// InsertMessage sends m and fills it with the stored row.
func (c *Client) InsertMessage(ctx context.Context, m *domain.Message) error {
	resp, err := c.Chat.SendMessage(ctx, &rpc.SendMessageRequest{Message: *m})
	if err != nil {
		return rpc.FromStatus(err)
	}
	*m = resp.Message
	return nil
}

func (c *Client) UpdateMessageText(ctx context.Context, id, text string) (*domain.Message, error) {
	resp, err := c.Chat.EditMessage(ctx, &rpc.EditMessageRequest{ID: id, Text: text})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return &resp.Message, nil
}

func (c *Client) SoftDeleteMessage(ctx context.Context, id string) error {
	_, err := c.Chat.DeleteMessage(ctx, &rpc.IDRequest{ID: id})
	return rpc.FromStatus(err)
}
