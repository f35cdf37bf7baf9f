package chat

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/domain"
)

// LoadMessages clears the timeline, fetches the non-deleted messages of id
// and applies them only if id is still the open conversation and no newer
// load started meanwhile. Then marks the conversation read.
func (s *Sync) LoadMessages(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.openID != id {
		s.mu.Unlock()
		return ErrNoConversation
	}
	s.generation++
	gen := s.generation
	s.timeline = keepOptimistic(s.timeline, id)
	s.mu.Unlock()
	s.signal()

	cctx, cancel := s.call(ctx)
	defer cancel()
	msgs, err := s.backend.ListMessages(cctx, id)

	s.mu.Lock()
	if s.openID != id || s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("stale message load discarded", zap.String("conversation", id))
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("list messages", zap.String("conversation", id), zap.Error(err))
		return err
	}
	s.timeline = mergeMessages(s.timeline, msgs...)
	s.markReadLocked(id)
	s.mu.Unlock()
	s.signal()
	return nil
}

// Timeline returns a copy of the open conversation's messages, oldest first.
func (s *Sync) Timeline() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// SetInput replaces the composer buffer.
func (s *Sync) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Input returns the composer buffer.
func (s *Sync) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Sending reports whether a send is in flight.
func (s *Sync) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Send posts the composer buffer to the open conversation. The message is
// shown at once as optimistic; on success it is replaced by the stored row,
// on failure it is removed and the buffer is restored.
func (s *Sync) Send(ctx context.Context) error {
	s.mu.Lock()
	raw := s.input
	text := strings.TrimSpace(raw)
	switch {
	case text == "":
		s.mu.Unlock()
		return ErrNothingToSend
	case s.openID == "":
		s.mu.Unlock()
		return ErrNoConversation
	case s.sending:
		s.mu.Unlock()
		return ErrSendInFlight
	}

	clientID := uuid.NewString()
	convID := s.openID
	if _, err := s.pending.open(clientID, convID, raw); err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.opts.Now()
	local := domain.Message{
		ID:             clientID,
		ConversationID: convID,
		SenderID:       s.me.ID,
		SenderRole:     s.me.Role,
		Text:           text,
		CreatedAt:      now,
		UpdatedAt:      now,
		Optimistic:     true,
		ClientID:       clientID,
	}
	s.timeline = mergeMessages(s.timeline, local)
	s.input = ""
	s.sending = true
	s.mu.Unlock()
	s.signal()

	out := local
	out.ID = ""
	out.Optimistic = false
	cctx, cancel := s.call(ctx)
	err := s.backend.InsertMessage(cctx, &out)
	cancel()

	s.mu.Lock()
	s.sending = false
	if err != nil {
		_ = s.pending.finish(clientID, RolledBack)
		s.timeline = removeMessage(s.timeline, clientID)
		s.input = raw + s.input
		s.mu.Unlock()
		s.signal()
		s.logger.Error("send failed, rolled back", zap.String("conversation", convID), zap.Error(err))
		return err
	}
	s.pending.resolve(clientID, out.ID)
	_ = s.pending.finish(clientID, Confirmed)
	s.timeline = removeMessage(s.timeline, clientID)
	if s.openID == convID {
		s.timeline = mergeMessages(s.timeline, out)
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

// EditMessage changes the text of a message. The timeline is patched only
// after the backend accepts the edit.
func (s *Sync) EditMessage(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrNothingToSend
	}
	cctx, cancel := s.call(ctx)
	defer cancel()
	updated, err := s.backend.UpdateMessageText(cctx, id, text)
	if err != nil {
		s.logger.Error("edit message", zap.String("message", id), zap.Error(err))
		return err
	}
	s.mu.Lock()
	changed := patchMessage(s.timeline, *updated)
	s.mu.Unlock()
	if changed {
		s.signal()
	}
	return nil
}

// DeleteMessage soft-deletes a message and removes it from the timeline
// once the backend accepts.
func (s *Sync) DeleteMessage(ctx context.Context, id string) error {
	cctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.backend.SoftDeleteMessage(cctx, id); err != nil {
		s.logger.Error("delete message", zap.String("message", id), zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.timeline = removeMessage(s.timeline, id)
	s.mu.Unlock()
	s.signal()
	return nil
}

// mergeMessages adds msgs to list, replacing entries with the same id,
// dropping soft-deleted rows and re-sorting by creation time.
func mergeMessages(list []domain.Message, msgs ...domain.Message) []domain.Message {
	index := make(map[string]int, len(list))
	for i, m := range list {
		index[m.ID] = i
	}
	for _, m := range msgs {
		if i, ok := index[m.ID]; ok {
			list[i] = m
			continue
		}
		index[m.ID] = len(list)
		list = append(list, m)
	}
	out := list[:0]
	for _, m := range list {
		if !m.IsDeleted {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func removeMessage(list []domain.Message, id string) []domain.Message {
	out := list[:0]
	for _, m := range list {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// patchMessage updates the text and edit state of the entry with m's id.
func patchMessage(list []domain.Message, m domain.Message) bool {
	for i := range list {
		if list[i].ID == m.ID {
			list[i].Text = m.Text
			list[i].IsEdited = m.IsEdited
			list[i].UpdatedAt = m.UpdatedAt
			return true
		}
	}
	return false
}

// keepOptimistic drops everything but the optimistic entries of id.
func keepOptimistic(list []domain.Message, id string) []domain.Message {
	var out []domain.Message
	for _, m := range list {
		if m.Optimistic && m.ConversationID == id {
			out = append(out, m)
		}
	}
	return out
}
