package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/campus/internal/domain"
)

const pkg = "campus.v1."

// Service names.
const (
	SessionServiceName      = pkg + "SessionService"
	NotificationServiceName = pkg + "NotificationService"
	ChatServiceName         = pkg + "ChatService"
	FeedServiceName         = pkg + "FeedService"
)

// SessionServer reports daemon state.
type SessionServer interface {
	Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error)
}

// NotificationServer manages notification rows.
type NotificationServer interface {
	Create(ctx context.Context, req *CreateNotificationRequest) (*NotificationResponse, error)
	List(ctx context.Context, req *ListNotificationsRequest) (*ListNotificationsResponse, error)
	CountUnread(ctx context.Context, req *ReceiverRequest) (*CountResponse, error)
	MarkRead(ctx context.Context, req *IDRequest) (*Empty, error)
	MarkAllRead(ctx context.Context, req *ReceiverRequest) (*CountResponse, error)
	Delete(ctx context.Context, req *IDRequest) (*Empty, error)
}

// ChatServer manages conversations, messages and profiles.
type ChatServer interface {
	ListConversations(ctx context.Context, req *ListConversationsRequest) (*ListConversationsResponse, error)
	FindConversation(ctx context.Context, req *PairRequest) (*ConversationResponse, error)
	CreateConversation(ctx context.Context, req *PairRequest) (*ConversationResponse, error)
	DeleteConversation(ctx context.Context, req *IDRequest) (*Empty, error)
	ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error)
	CountUnreadSince(ctx context.Context, req *CountUnreadSinceRequest) (*CountResponse, error)
	SendMessage(ctx context.Context, req *SendMessageRequest) (*MessageResponse, error)
	EditMessage(ctx context.Context, req *EditMessageRequest) (*MessageResponse, error)
	DeleteMessage(ctx context.Context, req *IDRequest) (*Empty, error)
	GetProfile(ctx context.Context, req *GetProfileRequest) (*ProfileResponse, error)
	SearchProfiles(ctx context.Context, req *SearchProfilesRequest) (*SearchProfilesResponse, error)
	UpsertProfile(ctx context.Context, req *UpsertProfileRequest) (*Empty, error)
}

// FeedServer streams row changes.
type FeedServer interface {
	Watch(req *WatchRequest, stream FeedWatchServer) error
}

// FeedWatchServer is the server side of a Watch stream.
type FeedWatchServer interface {
	Send(c *domain.Change) error
	grpc.ServerStream
}

type feedWatchServer struct {
	grpc.ServerStream
}

func (s *feedWatchServer) Send(c *domain.Change) error {
	return s.ServerStream.SendMsg(c)
}

// unary adapts a typed method to a grpc.MethodHandler.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "Status", SessionServer.Status),
	},
}

var NotificationServiceDesc = grpc.ServiceDesc{
	ServiceName: NotificationServiceName,
	HandlerType: (*NotificationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(NotificationServiceName, "Create", NotificationServer.Create),
		unary(NotificationServiceName, "List", NotificationServer.List),
		unary(NotificationServiceName, "CountUnread", NotificationServer.CountUnread),
		unary(NotificationServiceName, "MarkRead", NotificationServer.MarkRead),
		unary(NotificationServiceName, "MarkAllRead", NotificationServer.MarkAllRead),
		unary(NotificationServiceName, "Delete", NotificationServer.Delete),
	},
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatServiceName, "ListConversations", ChatServer.ListConversations),
		unary(ChatServiceName, "FindConversation", ChatServer.FindConversation),
		unary(ChatServiceName, "CreateConversation", ChatServer.CreateConversation),
		unary(ChatServiceName, "DeleteConversation", ChatServer.DeleteConversation),
		unary(ChatServiceName, "ListMessages", ChatServer.ListMessages),
		unary(ChatServiceName, "CountUnreadSince", ChatServer.CountUnreadSince),
		unary(ChatServiceName, "SendMessage", ChatServer.SendMessage),
		unary(ChatServiceName, "EditMessage", ChatServer.EditMessage),
		unary(ChatServiceName, "DeleteMessage", ChatServer.DeleteMessage),
		unary(ChatServiceName, "GetProfile", ChatServer.GetProfile),
		unary(ChatServiceName, "SearchProfiles", ChatServer.SearchProfiles),
		unary(ChatServiceName, "UpsertProfile", ChatServer.UpsertProfile),
	},
}

var FeedServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedServiceName,
	HandlerType: (*FeedServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(FeedServer).Watch(in, &feedWatchServer{stream})
			},
		},
	},
}

func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

func RegisterNotificationServer(s grpc.ServiceRegistrar, srv NotificationServer) {
	s.RegisterService(&NotificationServiceDesc, srv)
}

func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

func RegisterFeedServer(s grpc.ServiceRegistrar, srv FeedServer) {
	s.RegisterService(&FeedServiceDesc, srv)
}
