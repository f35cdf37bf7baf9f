// Package notify keeps the unread notification counter of one identity in
// step with the change feed.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/realtime"
)

// Backend is the part of the backend the counter needs.
type Backend interface {
	CountUnreadNotifications(ctx context.Context, receiverID string) (int, error)
	MarkAllNotificationsRead(ctx context.Context, receiverID string) (int, error)
}

// Presenter shows transient alerts for new notifications.
type Presenter interface {
	OnNotificationsView() bool
	Alert(text string)
}

// Sync holds the unread count for the current identity.
type Sync struct {
	backend   Backend
	feed      realtime.Feed
	presenter Presenter
	logger    *zap.Logger

	mu      sync.Mutex
	userID  string
	count   int
	seen    *realtime.Dedup
	sub     realtime.Subscription
	cancel  context.CancelFunc
	done    chan struct{}
	changes chan struct{}
}

// New creates a Sync. presenter may be nil.
func New(backend Backend, feed realtime.Feed, presenter Presenter, logger *zap.Logger) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sync{
		backend:   backend,
		feed:      feed,
		presenter: presenter,
		logger:    logger.Named("notify"),
		seen:      realtime.NewDedup(512),
		changes:   make(chan struct{}, 1),
	}
}

// Initialize loads the unread count for userID and subscribes to its
// notifications, replacing any earlier subscription. Errors are logged and
// returned; the count stays at its last value.
func (s *Sync) Initialize(ctx context.Context, userID string) error {
	s.Teardown()

	count, err := s.backend.CountUnreadNotifications(ctx, userID)
	if err != nil {
		s.logger.Error("count unread notifications", zap.String("user", userID), zap.Error(err))
		return err
	}

	topic := domain.Topic{Collection: domain.Notifications, Field: "receiver_id", Value: userID}
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := s.feed.Subscribe(subCtx, topic)
	if err != nil {
		cancel()
		s.logger.Error("subscribe notifications", zap.String("user", userID), zap.Error(err))
		s.mu.Lock()
		s.userID, s.count = userID, count
		s.mu.Unlock()
		s.signal()
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.userID = userID
	s.count = count
	s.sub = sub
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	s.signal()

	go s.run(sub, done)
	s.logger.Info("notifications initialized", zap.String("user", userID), zap.Int("unread", count))
	return nil
}

func (s *Sync) run(sub realtime.Subscription, done chan struct{}) {
	defer close(done)
	for c := range sub.Changes() {
		s.handle(c)
	}
}

// Teardown closes the subscription. It is safe to call repeatedly.
func (s *Sync) Teardown() {
	s.mu.Lock()
	sub, cancel, done := s.sub, s.cancel, s.done
	s.sub, s.cancel, s.done = nil, nil, nil
	s.userID = ""
	s.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	cancel()
	<-done
}

// MarkAllRead zeroes the badge, then marks every notification read on the
// backend. A failed bulk update is logged; the badge stays at zero until the
// next event or Initialize.
func (s *Sync) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	userID := s.userID
	s.count = 0
	s.mu.Unlock()
	s.signal()

	if userID == "" {
		return nil
	}
	if _, err := s.backend.MarkAllNotificationsRead(ctx, userID); err != nil {
		s.logger.Error("mark all notifications read", zap.String("user", userID), zap.Error(err))
		return err
	}
	return nil
}

// Refresh re-reads the unread count of the current identity. Call it after
// the feed was interrupted, since changes made meanwhile were never delivered.
func (s *Sync) Refresh(ctx context.Context) error {
	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()
	if userID == "" {
		return nil
	}

	count, err := s.backend.CountUnreadNotifications(ctx, userID)
	if err != nil {
		s.logger.Warn("refresh unread notifications", zap.String("user", userID), zap.Error(err))
		return err
	}
	s.mu.Lock()
	// Skip if the identity changed while counting.
	if s.userID == userID {
		s.count = count
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

// Count returns the current unread count.
func (s *Sync) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Changes signals after every count change. Signals coalesce.
func (s *Sync) Changes() <-chan struct{} {
	return s.changes
}

func (s *Sync) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Sync) handle(c domain.Change) {
	if !s.seen.First(c.ID) {
		s.logger.Debug("duplicate change ignored", zap.String("change_id", c.ID))
		return
	}
	var err error
	switch c.Op {
	case domain.Insert:
		var n domain.Notification
		if err = c.DecodeNew(&n); err == nil {
			s.onInsert(n)
		}
	case domain.Update:
		var old, updated domain.Notification
		if err = c.DecodeOld(&old); err == nil {
			if err = c.DecodeNew(&updated); err == nil {
				s.onUpdate(old, updated)
			}
		}
	case domain.Delete:
		var old domain.Notification
		if err = c.DecodeOld(&old); err == nil {
			s.onDelete(old)
		}
	}
	if err != nil {
		s.logger.Warn("undecodable notification change", zap.String("kind", c.Kind()), zap.Error(err))
	}
}

func (s *Sync) onInsert(n domain.Notification) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.signal()

	if s.presenter != nil && !s.presenter.OnNotificationsView() {
		s.presenter.Alert(n.Message)
	}
}

func (s *Sync) onUpdate(old, updated domain.Notification) {
	if old.Viewed || !updated.Viewed {
		return
	}
	s.decrement()
}

func (s *Sync) onDelete(old domain.Notification) {
	if old.Viewed {
		return
	}
	s.decrement()
}

func (s *Sync) decrement() {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
	}
	s.mu.Unlock()
	s.signal()
}
