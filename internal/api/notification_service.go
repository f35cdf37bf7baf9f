package api

import (
	"context"
	"fmt"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/rpc"
	"github.com/matheus3301/campus/internal/store"
)

// NotificationService implements rpc.NotificationServer over the store.
type NotificationService struct {
	db *store.DB
}

// NewNotificationService creates a notification service backed by the store.
func NewNotificationService(db *store.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Create(ctx context.Context, req *rpc.CreateNotificationRequest) (*rpc.NotificationResponse, error) {
	n := req.Notification
	if err := s.db.CreateNotification(ctx, &n); err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("create notification: %w", err))
	}
	return &rpc.NotificationResponse{Notification: n}, nil
}

func (s *NotificationService) List(ctx context.Context, req *rpc.ListNotificationsRequest) (*rpc.ListNotificationsResponse, error) {
	if req.ReceiverID == "" {
		return nil, rpc.ToStatus(fmt.Errorf("%w: receiver_id is required", domain.ErrInvalid))
	}
	list, err := s.db.ListNotifications(ctx, req.ReceiverID, req.UnreadOnly, req.Limit)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("list notifications: %w", err))
	}
	return &rpc.ListNotificationsResponse{Notifications: list}, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, req *rpc.ReceiverRequest) (*rpc.CountResponse, error) {
	n, err := s.db.CountUnreadNotifications(ctx, req.ReceiverID)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("count unread: %w", err))
	}
	return &rpc.CountResponse{Count: n}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, req *rpc.IDRequest) (*rpc.Empty, error) {
	if err := s.db.MarkNotificationRead(ctx, req.ID); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, req *rpc.ReceiverRequest) (*rpc.CountResponse, error) {
	if req.ReceiverID == "" {
		return nil, rpc.ToStatus(fmt.Errorf("%w: receiver_id is required", domain.ErrInvalid))
	}
	n, err := s.db.MarkAllNotificationsRead(ctx, req.ReceiverID)
	if err != nil {
		return nil, rpc.ToStatus(fmt.Errorf("mark all read: %w", err))
	}
	return &rpc.CountResponse{Count: n}, nil
}

func (s *NotificationService) Delete(ctx context.Context, req *rpc.IDRequest) (*rpc.Empty, error) {
	if err := s.db.DeleteNotification(ctx, req.ID); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}
