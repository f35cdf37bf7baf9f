package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/realtime"
)

// memBackend is an in-memory Backend with hooks to delay or fail calls.
type memBackend struct {
	mu       sync.Mutex
	convs    map[string]*domain.Conversation
	msgs     []domain.Message
	profiles map[domain.Identity]domain.Profile
	seq      int

	insertGate chan struct{}
	insertErr  error
	nextMsgID  string
	listGates  map[string]chan struct{}
	findGate   chan struct{}
	countGate  chan struct{}
	counting   chan struct{}
	profileErr error
	editErr    error
	deleteErr  error
	onInserted func(m domain.Message)

	createCalls int
	findCalls   int
	insertCalls int
}

func newMemBackend() *memBackend {
	return &memBackend{
		convs:     make(map[string]*domain.Conversation),
		profiles:  make(map[domain.Identity]domain.Profile),
		listGates: make(map[string]chan struct{}),
	}
}

func (b *memBackend) addProfile(id domain.Identity, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[id] = domain.Profile{Identity: id, Name: name}
}

func (b *memBackend) addConversation(id string, p1, p2 domain.Identity, last time.Time) *domain.Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &domain.Conversation{ID: id, Participant1: p1, Participant2: p2, LastMessageAt: last, CreatedAt: last}
	b.convs[id] = c
	return c
}

func (b *memBackend) addMessage(m domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, m)
}

func (b *memBackend) counts() (create, find, insert int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createCalls, b.findCalls, b.insertCalls
}

func (b *memBackend) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Conversation
	for _, c := range b.convs {
		if c.Involves(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) FindConversation(ctx context.Context, x, y domain.Identity) (*domain.Conversation, error) {
	b.mu.Lock()
	b.findCalls++
	gate := b.findGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.convs {
		if c.HasPair(x, y) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (b *memBackend) CreateConversation(ctx context.Context, x, y domain.Identity) (*domain.Conversation, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls++
	b.seq++
	now := time.Now()
	c := &domain.Conversation{ID: fmt.Sprintf("c-%d", b.seq), Participant1: x, Participant2: y, LastMessageAt: now, CreatedAt: now}
	b.convs[c.ID] = c
	cp := *c
	return &cp, true, nil
}

func (b *memBackend) DeleteConversation(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.convs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(b.convs, id)
	return nil
}

func (b *memBackend) GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.profileErr != nil {
		return nil, b.profileErr
	}
	p, ok := b.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (b *memBackend) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	b.mu.Lock()
	gate := b.listGates[conversationID]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Message
	for _, m := range b.msgs {
		if m.ConversationID == conversationID && !m.IsDeleted {
			out = append(out, m)
		}
	}
	return out, nil
}

func (b *memBackend) CountUnreadSince(ctx context.Context, conversationID string, since time.Time, excludeSender string) (int, error) {
	b.mu.Lock()
	gate, counting := b.countGate, b.counting
	b.mu.Unlock()
	if counting != nil {
		counting <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.msgs {
		if m.ConversationID == conversationID && m.CreatedAt.After(since) && m.SenderID != excludeSender && !m.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (b *memBackend) InsertMessage(ctx context.Context, m *domain.Message) error {
	b.mu.Lock()
	b.insertCalls++
	gate := b.insertGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	if b.insertErr != nil {
		b.mu.Unlock()
		return b.insertErr
	}
	b.seq++
	m.ID = b.nextMsgID
	if m.ID == "" {
		m.ID = fmt.Sprintf("m-%d", b.seq)
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	b.msgs = append(b.msgs, *m)
	hook := b.onInserted
	b.mu.Unlock()
	if hook != nil {
		hook(*m)
	}
	return nil
}

func (b *memBackend) UpdateMessageText(ctx context.Context, id, text string) (*domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editErr != nil {
		return nil, b.editErr
	}
	for i := range b.msgs {
		if b.msgs[i].ID == id {
			b.msgs[i].Text = text
			b.msgs[i].IsEdited = true
			b.msgs[i].UpdatedAt = time.Now()
			m := b.msgs[i]
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (b *memBackend) SoftDeleteMessage(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	for i := range b.msgs {
		if b.msgs[i].ID == id {
			b.msgs[i].IsDeleted = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type memSub struct {
	feed   *memFeed
	topic  domain.Topic
	ch     chan domain.Change
	closed bool
}

func (s *memSub) Changes() <-chan domain.Change { return s.ch }

func (s *memSub) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// memFeed delivers emitted changes to every open subscription whose topic
// matches.
type memFeed struct {
	mu   sync.Mutex
	subs []*memSub
}

func (f *memFeed) Subscribe(ctx context.Context, topic domain.Topic) (realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &memSub{feed: f, topic: topic, ch: make(chan domain.Change, 64)}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *memFeed) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.closed {
			n++
		}
	}
	return n
}

func (f *memFeed) emit(c domain.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.closed || !s.topic.Match(c) {
			continue
		}
		s.ch <- c
	}
}
