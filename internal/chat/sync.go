// Package chat keeps the conversation list, unread accounting and the open
// message timeline of one identity in step with the backend and its change
// feed.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/realtime"
)

// Send refusals. They are returned for callers that care and are never
// shown as errors.
var (
	ErrNothingToSend  = errors.New("nothing to send")
	ErrNoConversation = errors.New("no open conversation")
	ErrSendInFlight   = errors.New("a send is already in flight")
)

// ErrClosed is returned by operations on a closed Sync.
var ErrClosed = errors.New("chat sync closed")

// Backend is the part of the backend the chat needs.
type Backend interface {
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	FindConversation(ctx context.Context, a, b domain.Identity) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, a, b domain.Identity) (*domain.Conversation, bool, error)
	DeleteConversation(ctx context.Context, id string) error
	GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error)

	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	CountUnreadSince(ctx context.Context, conversationID string, since time.Time, excludeSender string) (int, error)
	InsertMessage(ctx context.Context, m *domain.Message) error
	UpdateMessageText(ctx context.Context, id, text string) (*domain.Message, error)
	SoftDeleteMessage(ctx context.Context, id string) error
}

// Options tune a Sync. Zero values take the defaults.
type Options struct {
	// ReadLeaseInterval is how often the open conversation's read position
	// is renewed.
	ReadLeaseInterval time.Duration
	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration
	// Now is the clock.
	Now func() time.Time
}

const (
	DefaultReadLeaseInterval = 5 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ReadLeaseInterval <= 0 {
		o.ReadLeaseInterval = DefaultReadLeaseInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Tracking is the client-side read state of one conversation.
type Tracking struct {
	Unread     int
	LastReadAt time.Time
}

// Sync is the chat state of one identity. All methods are safe for
// concurrent use.
type Sync struct {
	backend Backend
	feed    realtime.Feed
	me      domain.Identity
	opts    Options
	logger  *zap.Logger
	seen    *realtime.Dedup
	starts  singleflight.Group

	mu            sync.Mutex
	conversations []domain.Conversation
	tracking      map[string]*Tracking
	openID        string
	generation    uint64
	timeline      []domain.Message
	input         string
	sending       bool
	pending       *ledger
	lease         *Lease
	closed        bool

	subs    []realtime.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	reload  chan struct{}
	changes chan struct{}
}

// New creates a Sync for me.
func New(backend Backend, feed realtime.Feed, me domain.Identity, opts Options, logger *zap.Logger) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sync{
		backend:  backend,
		feed:     feed,
		me:       me,
		opts:     opts.withDefaults(),
		logger:   logger.Named("chat").With(zap.Stringer("identity", me)),
		seen:     realtime.NewDedup(1024),
		tracking: make(map[string]*Tracking),
		pending:  newLedger(),
		reload:   make(chan struct{}, 1),
		changes:  make(chan struct{}, 1),
	}
}

// Me returns the identity the chat belongs to.
func (s *Sync) Me() domain.Identity {
	return s.me
}

// Start subscribes to message and conversation changes and loads the
// conversation list. A second Start replaces the earlier subscriptions.
func (s *Sync) Start(ctx context.Context) error {
	s.stopFeed()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var subs []realtime.Subscription
	for _, coll := range []domain.Collection{domain.Messages, domain.Conversations} {
		sub, err := s.feed.Subscribe(feedCtx, domain.Topic{Collection: coll})
		if err != nil {
			for _, open := range subs {
				open.Close()
			}
			cancel()
			s.logger.Error("subscribe", zap.String("collection", string(coll)), zap.Error(err))
			return err
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	s.subs = subs
	s.cancel = cancel
	s.mu.Unlock()

	for _, sub := range subs {
		s.wg.Add(1)
		go s.drain(sub)
	}
	s.wg.Add(1)
	go s.reloader(feedCtx)

	return s.LoadConversations(ctx)
}

func (s *Sync) drain(sub realtime.Subscription) {
	defer s.wg.Done()
	for c := range sub.Changes() {
		s.handle(c)
	}
}

// reloader runs list reloads requested by event handlers, one at a time.
func (s *Sync) reloader(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.reload:
			if err := s.LoadConversations(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("background reload failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// requestReload schedules a list reload without waiting for it.
func (s *Sync) requestReload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

func (s *Sync) stopFeed() {
	s.mu.Lock()
	subs, cancel := s.subs, s.cancel
	s.subs, s.cancel = nil, nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Resync reloads the list and the open timeline. Call it after the feed was
// interrupted.
func (s *Sync) Resync(ctx context.Context) error {
	if err := s.LoadConversations(ctx); err != nil {
		return err
	}
	if id := s.OpenID(); id != "" {
		return s.LoadMessages(ctx, id)
	}
	return nil
}

// Close releases the subscriptions and the read lease.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.lease.Release()
	s.lease = nil
	s.mu.Unlock()
	s.stopFeed()
}

// Changes signals after every state change. Signals coalesce.
func (s *Sync) Changes() <-chan struct{} {
	return s.changes
}

func (s *Sync) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Sync) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.RequestTimeout)
}

func (s *Sync) handle(c domain.Change) {
	if !s.seen.First(c.ID) {
		s.logger.Debug("duplicate change ignored", zap.String("change_id", c.ID))
		return
	}
	var err error
	switch c.Collection {
	case domain.Messages:
		err = s.onMessageChange(c)
	case domain.Conversations:
		err = s.onConversationChange(c)
	}
	if err != nil {
		s.logger.Warn("undecodable change", zap.String("kind", c.Kind()), zap.Error(err))
	}
}

func (s *Sync) onMessageChange(c domain.Change) error {
	switch c.Op {
	case domain.Insert:
		var m domain.Message
		if err := c.DecodeNew(&m); err != nil {
			return err
		}
		s.onMessageInsert(m)
	case domain.Update:
		var m domain.Message
		if err := c.DecodeNew(&m); err != nil {
			return err
		}
		s.onMessageUpdate(m)
	case domain.Delete:
		var m domain.Message
		if err := c.DecodeOld(&m); err != nil {
			return err
		}
		s.onMessageUpdate(domain.Message{ID: m.ID, ConversationID: m.ConversationID, IsDeleted: true})
	}
	return nil
}

// onMessageInsert merges a live insert into the open timeline or counts it
// as unread, then schedules a list reload.
func (s *Sync) onMessageInsert(m domain.Message) {
	s.mu.Lock()
	tr, known := s.tracking[m.ConversationID]
	if !known && m.ConversationID != s.openID {
		s.mu.Unlock()
		return
	}
	switch {
	case m.ConversationID == s.openID:
		if m.ClientID != "" {
			if _, ok := s.pending.get(m.ClientID); ok {
				s.pending.resolve(m.ClientID, m.ID)
			}
			s.timeline = removeMessage(s.timeline, m.ClientID)
		}
		s.timeline = mergeMessages(s.timeline, m)
	case m.SenderID != s.me.ID && m.CreatedAt.After(tr.LastReadAt):
		tr.Unread++
	}
	s.mu.Unlock()
	s.signal()
	s.requestReload()
}

func (s *Sync) onMessageUpdate(m domain.Message) {
	s.mu.Lock()
	_, known := s.tracking[m.ConversationID]
	changed := false
	if m.ConversationID == s.openID {
		if m.IsDeleted {
			before := len(s.timeline)
			s.timeline = removeMessage(s.timeline, m.ID)
			changed = len(s.timeline) != before
		} else {
			changed = patchMessage(s.timeline, m)
		}
	}
	s.mu.Unlock()
	if changed {
		s.signal()
	}
	if known && m.ConversationID != s.openID {
		s.requestReload()
	}
}

func (s *Sync) onConversationChange(c domain.Change) error {
	var conv domain.Conversation
	var err error
	if c.Op == domain.Delete {
		err = c.DecodeOld(&conv)
	} else {
		err = c.DecodeNew(&conv)
	}
	if err != nil {
		return err
	}
	if !conv.Involves(s.me.ID) {
		return nil
	}
	if c.Op == domain.Delete {
		s.forgetConversation(conv.ID)
	}
	s.requestReload()
	return nil
}
