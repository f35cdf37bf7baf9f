package api

import (
	"context"
	"fmt"

	"github.com/matheus3301/campus/internal/cache"
	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/rpc"
	"github.com/matheus3301/campus/internal/store"
)

// ChatService implements rpc.ChatServer. Profile reads go through the cache.
type ChatService struct {
	db       *store.DB
	profiles *cache.Profiles
}

// NewChatService creates a chat service backed by the store.
func NewChatService(db *store.DB, profiles *cache.Profiles) *ChatService {
	return &ChatService{db: db, profiles: profiles}
}

func (s *ChatService) ListConversations(ctx context.Context, req *rpc.ListConversationsRequest) (*rpc.ListConversationsResponse, error) {
	convs, err := s.db.ListConversations(ctx, req.UserID)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("list conversations: %w", err))
	}
	return &rpc.ListConversationsResponse{Conversations: convs}, nil
}

func (s *ChatService) FindConversation(ctx context.Context, req *rpc.PairRequest) (*rpc.ConversationResponse, error) {
	c, err := s.db.FindConversation(ctx, req.A, req.B)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.ConversationResponse{Conversation: *c}, nil
}

func (s *ChatService) CreateConversation(ctx context.Context, req *rpc.PairRequest) (*rpc.ConversationResponse, error) {
	c, created, err := s.db.CreateConversation(ctx, req.A, req.B)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("create conversation: %w", err))
	}
	return &rpc.ConversationResponse{Conversation: *c, Created: created}, nil
}

func (s *ChatService) DeleteConversation(ctx context.Context, req *rpc.IDRequest) (*rpc.Empty, error) {
	if err := s.db.DeleteConversation(ctx, req.ID); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}

func (s *ChatService) ListMessages(ctx context.Context, req *rpc.ListMessagesRequest) (*rpc.ListMessagesResponse, error) {
	msgs, err := s.db.ListMessages(ctx, req.ConversationID)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("list messages: %w", err))
	}
	return &rpc.ListMessagesResponse{Messages: msgs}, nil
}

func (s *ChatService) CountUnreadSince(ctx context.Context, req *rpc.CountUnreadSinceRequest) (*rpc.CountResponse, error) {
	n, err := s.db.CountUnreadSince(ctx, req.ConversationID, req.Since, req.ExcludeSender)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("count unread: %w", err))
	}
	return &rpc.CountResponse{Count: n}, nil
}

func (s *ChatService) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.MessageResponse, error) {
	m := req.Message
	if _, err := m.SenderRole.Collection(); err != nil {
		return nil, rpc.ToStatus(err)
	}
	if err := s.db.InsertMessage(ctx, &m); err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("send message: %w", err))
	}
	return &rpc.MessageResponse{Message: m}, nil
}

func (s *ChatService) EditMessage(ctx context.Context, req *rpc.EditMessageRequest) (*rpc.MessageResponse, error) {
	m, err := s.db.UpdateMessageText(ctx, req.ID, req.Text)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.MessageResponse{Message: *m}, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, req *rpc.IDRequest) (*rpc.Empty, error) {
	if err := s.db.SoftDeleteMessage(ctx, req.ID); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}

func (s *ChatService) GetProfile(ctx context.Context, req *rpc.GetProfileRequest) (*rpc.ProfileResponse, error) {
	p, err := s.profiles.GetProfile(ctx, req.Identity)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.ProfileResponse{Profile: *p}, nil
}

func (s *ChatService) SearchProfiles(ctx context.Context, req *rpc.SearchProfilesRequest) (*rpc.SearchProfilesResponse, error) {
	list, err := s.profiles.SearchProfiles(ctx, req.Query, req.Roles, req.Limit)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("search profiles: %w", err))
	}
	return &rpc.SearchProfilesResponse{Profiles: list}, nil
}

func (s *ChatService) UpsertProfile(ctx context.Context, req *rpc.UpsertProfileRequest) (*rpc.Empty, error) {
	p := req.Profile
	if p.ID == "" {
		return nil, rpc.ToStatus(fmt.Errorf("%w: profile id is required", domain.ErrInvalid))
	}
	if err := s.profiles.UpsertProfile(ctx, &p); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}
