package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheus3301/campus/internal/domain"
)

// LoadConversations fetches the conversations of the identity, resolves
// every counterpart concurrently, orders them by last activity and
// recomputes unread counts. On error the current list is kept.
func (s *Sync) LoadConversations(ctx context.Context) error {
	ctx, cancel := s.call(ctx)
	defer cancel()

	convs, err := s.backend.ListConversations(ctx, s.me.ID)
	if err != nil {
		s.logger.Error("list conversations", zap.Error(err))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range convs {
		g.Go(func() error {
			p, err := s.resolveCounterpart(gctx, &convs[i])
			if err != nil {
				return fmt.Errorf("conversation %s: %w", convs[i].ID, err)
			}
			convs[i].Other = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("resolve counterparts", zap.Error(err))
		return err
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})

	s.mu.Lock()
	lastRead := make(map[string]time.Time, len(s.tracking))
	for id, tr := range s.tracking {
		lastRead[id] = tr.LastReadAt
	}
	s.mu.Unlock()

	counts := s.computeUnreadCounts(ctx, convs, lastRead)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	tracking := make(map[string]*Tracking, len(convs))
	for i := range convs {
		id := convs[i].ID
		tr := &Tracking{Unread: counts[id], LastReadAt: lastRead[id]}
		// Read while the counts were in flight: the count used an older
		// watermark, the live count since that read is current.
		if cur, ok := s.tracking[id]; ok && cur.LastReadAt.After(tr.LastReadAt) {
			tr.LastReadAt = cur.LastReadAt
			tr.Unread = cur.Unread
		}
		if id == s.openID {
			tr.Unread = 0
		}
		convs[i].Unread = tr.Unread
		tracking[id] = tr
	}
	// An open conversation missing from the fetched list keeps its read state
	// until it is closed or deleted.
	if old, ok := s.tracking[s.openID]; ok && tracking[s.openID] == nil {
		tracking[s.openID] = old
	}
	s.conversations = convs
	s.tracking = tracking
	s.signal()
	return nil
}

// resolveCounterpart loads the other participant's profile. A counterpart
// without a profile row gets a placeholder built from its identity.
func (s *Sync) resolveCounterpart(ctx context.Context, c *domain.Conversation) (*domain.Profile, error) {
	other := c.Counterpart(s.me)
	p, err := s.backend.GetProfile(ctx, other)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Profile{Identity: other}, nil
	}
	return p, err
}

// computeUnreadCounts counts, per conversation, the messages from others
// newer than the last read time, or than the conversation's last activity
// when it was never read here. A failed count leaves that conversation at 0.
func (s *Sync) computeUnreadCounts(ctx context.Context, convs []domain.Conversation, lastRead map[string]time.Time) map[string]int {
	counts := make(map[string]int, len(convs))
	results := make([]int, len(convs))
	var g errgroup.Group
	for i := range convs {
		g.Go(func() error {
			since, ok := lastRead[convs[i].ID]
			if !ok || since.IsZero() {
				since = convs[i].LastMessageAt
			}
			n, err := s.backend.CountUnreadSince(ctx, convs[i].ID, since, s.me.ID)
			if err != nil {
				s.logger.Warn("count unread", zap.String("conversation", convs[i].ID), zap.Error(err))
				return nil
			}
			results[i] = n
			return nil
		})
	}
	_ = g.Wait()
	for i := range convs {
		counts[convs[i].ID] = results[i]
	}
	return counts
}

// StartOrResume opens the conversation with counterpart, creating it when
// none exists. Concurrent calls for the same counterpart share one lookup
// and at most one insert.
func (s *Sync) StartOrResume(ctx context.Context, counterpart domain.Identity) (*domain.Conversation, error) {
	if counterpart.IsZero() || counterpart == s.me {
		return nil, fmt.Errorf("invalid counterpart %s", counterpart)
	}
	if _, err := counterpart.Role.Collection(); err != nil {
		return nil, err
	}

	key := domain.PairKey(s.me, counterpart)
	v, err, _ := s.starts.Do(key, func() (any, error) {
		return s.findOrCreate(ctx, counterpart)
	})
	if err != nil {
		s.logger.Error("start conversation", zap.Stringer("counterpart", counterpart), zap.Error(err))
		return nil, err
	}
	conv := v.(domain.Conversation)
	if err := s.Open(ctx, conv.ID); err != nil {
		return &conv, err
	}
	return &conv, nil
}

func (s *Sync) findOrCreate(ctx context.Context, counterpart domain.Identity) (domain.Conversation, error) {
	if c, ok := s.findLocal(counterpart); ok {
		return c, nil
	}

	ctx, cancel := s.call(ctx)
	defer cancel()

	conv, err := s.backend.FindConversation(ctx, s.me, counterpart)
	if errors.Is(err, domain.ErrNotFound) {
		conv, _, err = s.backend.CreateConversation(ctx, s.me, counterpart)
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	if conv.Other == nil {
		p, err := s.resolveCounterpart(ctx, conv)
		if err != nil {
			s.logger.Warn("resolve counterpart", zap.Stringer("counterpart", counterpart), zap.Error(err))
			p = &domain.Profile{Identity: counterpart}
		}
		conv.Other = p
	}

	s.mu.Lock()
	if !containsConversation(s.conversations, conv.ID) {
		s.conversations = append([]domain.Conversation{*conv}, s.conversations...)
	}
	if _, ok := s.tracking[conv.ID]; !ok {
		s.tracking[conv.ID] = &Tracking{}
	}
	s.mu.Unlock()
	return *conv, nil
}

func (s *Sync) findLocal(counterpart domain.Identity) (domain.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.HasPair(s.me, counterpart) {
			return c, true
		}
	}
	return domain.Conversation{}, false
}

// DeleteConversation deletes a conversation on the backend and forgets it
// locally. Closes it first when it is the open one.
func (s *Sync) DeleteConversation(ctx context.Context, id string) error {
	cctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.backend.DeleteConversation(cctx, id); err != nil {
		s.logger.Error("delete conversation", zap.String("conversation", id), zap.Error(err))
		return err
	}
	s.forgetConversation(id)
	return nil
}

func (s *Sync) forgetConversation(id string) {
	s.mu.Lock()
	kept := s.conversations[:0:0]
	for _, c := range s.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.conversations = kept
	delete(s.tracking, id)
	if s.openID == id {
		s.closeOpenLocked()
	}
	s.mu.Unlock()
	s.signal()
}

// Open makes id the open conversation: its unread count is pinned to zero,
// a read lease is taken and its messages are loaded.
func (s *Sync) Open(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.openID != id {
		s.closeOpenLocked()
		s.openID = id
	}
	s.markReadLocked(id)
	if s.lease == nil {
		s.lease = AcquireLease(s.opts.ReadLeaseInterval, func() { s.renewRead(id) })
	}
	s.mu.Unlock()
	s.signal()

	return s.LoadMessages(ctx, id)
}

// CloseConversation returns to the list view and releases the read lease.
func (s *Sync) CloseConversation() {
	s.mu.Lock()
	s.closeOpenLocked()
	s.mu.Unlock()
	s.signal()
}

func (s *Sync) closeOpenLocked() {
	s.lease.Release()
	s.lease = nil
	s.openID = ""
	s.generation++
	s.timeline = nil
}

func (s *Sync) markReadLocked(id string) {
	tr, ok := s.tracking[id]
	if !ok {
		tr = &Tracking{}
		s.tracking[id] = tr
	}
	tr.Unread = 0
	tr.LastReadAt = s.opts.Now()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].Unread = 0
		}
	}
}

func (s *Sync) renewRead(id string) {
	s.mu.Lock()
	if s.openID != id {
		s.mu.Unlock()
		return
	}
	s.markReadLocked(id)
	s.mu.Unlock()
}

// Conversations returns the ordered conversation list with current unread
// counts.
func (s *Sync) Conversations() []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Conversation, len(s.conversations))
	copy(out, s.conversations)
	for i := range out {
		out[i].Unread = s.unreadLocked(out[i].ID)
	}
	return out
}

// Unread returns the unread count of a conversation. The open conversation
// always reports 0.
func (s *Sync) Unread(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked(id)
}

func (s *Sync) unreadLocked(id string) int {
	if id == s.openID {
		return 0
	}
	if tr, ok := s.tracking[id]; ok {
		return tr.Unread
	}
	return 0
}

// LastReadAt returns when the conversation was last read here.
func (s *Sync) LastReadAt(id string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tr, ok := s.tracking[id]; ok {
		return tr.LastReadAt
	}
	return time.Time{}
}

// OpenID returns the open conversation id, or "" when the list is shown.
func (s *Sync) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

func containsConversation(convs []domain.Conversation, id string) bool {
	for _, c := range convs {
		if c.ID == id {
			return true
		}
	}
	return false
}
