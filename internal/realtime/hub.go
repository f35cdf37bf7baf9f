package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/domain"
)

// ErrHubStopped is returned by Subscribe after Stop.
var ErrHubStopped = errors.New("realtime hub stopped")

// Subscription delivers the changes of one topic until closed.
type Subscription interface {
	Changes() <-chan domain.Change
	Close()
}

// Feed opens topic subscriptions. The hub and the remote client both
// implement it.
type Feed interface {
	Subscribe(ctx context.Context, topic domain.Topic) (Subscription, error)
}

// DefaultBuffer is the per-subscription channel size.
const DefaultBuffer = 64

// Hub consumes "db." events from the bus and fans them out to topic
// subscriptions. A subscriber whose buffer is full misses the change.
type Hub struct {
	bus     *bus.Bus
	logger  *zap.Logger
	bufSize int

	mu      sync.Mutex
	subs    map[int]*hubSub
	next    int
	stopped bool

	dropped atomic.Int64
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHub creates a hub reading from b.
func NewHub(b *bus.Bus, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		bus:     b,
		logger:  logger,
		bufSize: DefaultBuffer,
		subs:    make(map[int]*hubSub),
	}
}

// Start subscribes to row changes on the bus.
func (h *Hub) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	ch, unsub := h.bus.Subscribe(bus.NamespaceDB, 1024)

	go func() {
		defer close(h.done)
		defer unsub()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				change, ok := evt.Payload.(domain.Change)
				if !ok {
					h.logger.Warn("unexpected db event payload", zap.String("kind", evt.Kind))
					continue
				}
				h.dispatch(change)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the bus subscription and closes every open subscription.
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	h.closeAllLocked()
}

// Reset closes every open subscription and keeps the hub running. Called
// when the hub may have missed changes, so subscribers reconnect and reload.
func (h *Hub) Reset() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.closeAllLocked()
	if n > 0 {
		h.logger.Info("subscriptions reset", zap.Int("closed", n))
	}
	return n
}

func (h *Hub) closeAllLocked() int {
	n := len(h.subs)
	for id, s := range h.subs {
		s.closeLocked()
		delete(h.subs, id)
	}
	return n
}

// Subscribe opens a subscription for topic. It is closed when ctx ends or
// Close is called.
func (h *Hub) Subscribe(ctx context.Context, topic domain.Topic) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil, ErrHubStopped
	}
	s := &hubSub{
		hub:   h,
		id:    h.next,
		topic: topic,
		ch:    make(chan domain.Change, h.bufSize),
	}
	h.next++
	h.subs[s.id] = s
	s.stopCtx = context.AfterFunc(ctx, s.Close)
	h.logger.Debug("subscription opened", zap.Stringer("topic", topic), zap.Int("id", s.id))
	return s, nil
}

// Dropped returns how many changes were skipped because a subscriber was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers a change directly to matching subscriptions, bypassing
// the bus.
func (h *Hub) Publish(c domain.Change) {
	h.dispatch(c)
}

func (h *Hub) dispatch(c domain.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if !s.topic.Match(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.dropped.Add(1)
			h.logger.Warn("subscriber full, change dropped",
				zap.Stringer("topic", s.topic),
				zap.String("change_id", c.ID),
				zap.String("kind", c.Kind()))
		}
	}
}

type hubSub struct {
	hub     *Hub
	id      int
	topic   domain.Topic
	ch      chan domain.Change
	closed  bool
	stopCtx func() bool
}

func (s *hubSub) Changes() <-chan domain.Change {
	return s.ch
}

func (s *hubSub) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.subs[s.id]; ok {
		delete(s.hub.subs, s.id)
		s.closeLocked()
	}
}

func (s *hubSub) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.stopCtx != nil {
		s.stopCtx()
	}
	close(s.ch)
}
