package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/campus/internal/domain"
)

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionClient calls SessionService.
type SessionClient struct{ cc grpc.ClientConnInterface }

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient { return &SessionClient{cc} }

func (c *SessionClient) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, SessionServiceName, "Status", req)
}

// NotificationClient calls NotificationService.
type NotificationClient struct{ cc grpc.ClientConnInterface }

func NewNotificationClient(cc grpc.ClientConnInterface) *NotificationClient {
	return &NotificationClient{cc}
}

func (c *NotificationClient) Create(ctx context.Context, req *CreateNotificationRequest) (*NotificationResponse, error) {
	return invoke[NotificationResponse](ctx, c.cc, NotificationServiceName, "Create", req)
}

func (c *NotificationClient) List(ctx context.Context, req *ListNotificationsRequest) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsResponse](ctx, c.cc, NotificationServiceName, "List", req)
}

func (c *NotificationClient) CountUnread(ctx context.Context, req *ReceiverRequest) (*CountResponse, error) {
	return invoke[CountResponse](ctx, c.cc, NotificationServiceName, "CountUnread", req)
}

func (c *NotificationClient) MarkRead(ctx context.Context, req *IDRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, NotificationServiceName, "MarkRead", req)
}

func (c *NotificationClient) MarkAllRead(ctx context.Context, req *ReceiverRequest) (*CountResponse, error) {
	return invoke[CountResponse](ctx, c.cc, NotificationServiceName, "MarkAllRead", req)
}

func (c *NotificationClient) Delete(ctx context.Context, req *IDRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, NotificationServiceName, "Delete", req)
}

// ChatClient calls ChatService.
type ChatClient struct{ cc grpc.ClientConnInterface }

func NewChatClient(cc grpc.ClientConnInterface) *ChatClient { return &ChatClient{cc} }

func (c *ChatClient) ListConversations(ctx context.Context, req *ListConversationsRequest) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatServiceName, "ListConversations", req)
}

func (c *ChatClient) FindConversation(ctx context.Context, req *PairRequest) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, ChatServiceName, "FindConversation", req)
}

func (c *ChatClient) CreateConversation(ctx context.Context, req *PairRequest) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, ChatServiceName, "CreateConversation", req)
}

func (c *ChatClient) DeleteConversation(ctx context.Context, req *IDRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatServiceName, "DeleteConversation", req)
}

func (c *ChatClient) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, ChatServiceName, "ListMessages", req)
}

func (c *ChatClient) CountUnreadSince(ctx context.Context, req *CountUnreadSinceRequest) (*CountResponse, error) {
	return invoke[CountResponse](ctx, c.cc, ChatServiceName, "CountUnreadSince", req)
}

func (c *ChatClient) SendMessage(ctx context.Context, req *SendMessageRequest) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c.cc, ChatServiceName, "SendMessage", req)
}

func (c *ChatClient) EditMessage(ctx context.Context, req *EditMessageRequest) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c.cc, ChatServiceName, "EditMessage", req)
}

func (c *ChatClient) DeleteMessage(ctx context.Context, req *IDRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatServiceName, "DeleteMessage", req)
}

func (c *ChatClient) GetProfile(ctx context.Context, req *GetProfileRequest) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, ChatServiceName, "GetProfile", req)
}

func (c *ChatClient) SearchProfiles(ctx context.Context, req *SearchProfilesRequest) (*SearchProfilesResponse, error) {
	return invoke[SearchProfilesResponse](ctx, c.cc, ChatServiceName, "SearchProfiles", req)
}

func (c *ChatClient) UpsertProfile(ctx context.Context, req *UpsertProfileRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatServiceName, "UpsertProfile", req)
}

// FeedClient calls FeedService.
type FeedClient struct{ cc grpc.ClientConnInterface }

func NewFeedClient(cc grpc.ClientConnInterface) *FeedClient { return &FeedClient{cc} }

// WatchStream receives the changes of one Watch call.
type WatchStream struct {
	grpc.ClientStream
}

func (s *WatchStream) Recv() (*domain.Change, error) {
	c := new(domain.Change)
	if err := s.ClientStream.RecvMsg(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Watch opens a change stream for req.Topic. Cancel ctx to end it.
func (c *FeedClient) Watch(ctx context.Context, req *WatchRequest) (*WatchStream, error) {
	stream, err := c.cc.NewStream(ctx, &FeedServiceDesc.Streams[0], "/"+FeedServiceName+"/Watch", CallOption())
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{stream}, nil
}
