package api

import (
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/realtime"
	"github.com/matheus3301/campus/internal/rpc"
)

// FeedService implements rpc.FeedServer by relaying hub subscriptions.
type FeedService struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewFeedService creates a feed service over the hub.
func NewFeedService(hub *realtime.Hub, logger *zap.Logger) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedService{hub: hub, logger: logger}
}

func (s *FeedService) Watch(req *rpc.WatchRequest, stream rpc.FeedWatchServer) error {
	sub, err := s.hub.Subscribe(stream.Context(), req.Topic)
	if err != nil {
		return rpc.ToStatus(err)
	}
	defer sub.Close()

	s.logger.Info("feed watch started", zap.Stringer("topic", req.Topic))
	defer s.logger.Info("feed watch ended", zap.Stringer("topic", req.Topic))

	for c := range sub.Changes() {
		if err := stream.Send(&c); err != nil {
			return err
		}
	}
	return nil
}
