package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matheus3301/campus/internal/domain"
)

type messageRow struct {
	ID             string `db:"id"`
	ConversationID string `db:"conversation_id"`
	SenderID       string `db:"sender_id"`
	SenderRole     string `db:"sender_role"`
	Text           string `db:"text"`
	ClientID       string `db:"client_id"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
	IsDeleted      bool   `db:"is_deleted"`
	IsEdited       bool   `db:"is_edited"`
}

const messageColumns = `id, conversation_id, sender_id, sender_role, text, client_id, created_at, updated_at, is_deleted, is_edited`

func (r messageRow) toDomain() domain.Message {
	return domain.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		SenderRole:     domain.Role(r.SenderRole),
		Text:           r.Text,
		ClientID:       r.ClientID,
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
		IsDeleted:      r.IsDeleted,
		IsEdited:       r.IsEdited,
	}
}

// ListMessages returns the non-deleted messages of a conversation, oldest first.
func (db *DB) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var rows []messageRow
	if err := db.selectRows(ctx, db, &rows, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? AND is_deleted = FALSE
		ORDER BY created_at ASC`, conversationID); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetMessage returns a message by id, including soft-deleted ones.
func (db *DB) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return db.getMessage(ctx, db, id)
}

func (db *DB) getMessage(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Message, error) {
	var row messageRow
	err := db.get(ctx, q, &row, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m := row.toDomain()
	return &m, nil
}

// InsertMessage stores m, assigning a server id and timestamps, and advances
// the conversation's last_message_at. m is updated in place.
func (db *DB) InsertMessage(ctx context.Context, m *domain.Message) error {
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: message text is empty", domain.ErrInvalid)
	}
	now := time.Now()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.IsDeleted = false
	m.IsEdited = false
	m.Optimistic = false

	var conv *domain.Conversation
	touched := false
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := db.exec(ctx, tx, `
			INSERT INTO messages (`+messageColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, FALSE)`,
			m.ID, m.ConversationID, m.SenderID, string(m.SenderRole), m.Text, m.ClientID,
			millis(now), millis(now)); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		var err error
		conv, touched, err = db.touch(ctx, tx, m.ConversationID, now)
		return err
	})
	if err != nil {
		return err
	}
	db.publish(ctx, domain.Messages, domain.Insert, nil, m)
	if touched {
		updated := *conv
		updated.LastMessageAt = now
		db.publish(ctx, domain.Conversations, domain.Update, conv, &updated)
	}
	return nil
}

// UpdateMessageText replaces the text of a message and marks it edited.
func (db *DB) UpdateMessageText(ctx context.Context, id, text string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is empty", domain.ErrInvalid)
	}
	var old *domain.Message
	now := time.Now()
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if old, err = db.getMessage(ctx, tx, id); err != nil {
			return err
		}
		if old.IsDeleted {
			return fmt.Errorf("message %q: %w", id, domain.ErrNotFound)
		}
		_, err = db.exec(ctx, tx, `UPDATE messages SET text = ?, is_edited = TRUE, updated_at = ? WHERE id = ?`,
			text, millis(now), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	updated := *old
	updated.Text = text
	updated.IsEdited = true
	updated.UpdatedAt = now
	db.publish(ctx, domain.Messages, domain.Update, old, &updated)
	return &updated, nil
}

// SoftDeleteMessage flags a message deleted. It stays in the table but is no
// longer listed.
func (db *DB) SoftDeleteMessage(ctx context.Context, id string) error {
	var old *domain.Message
	changed := false
	now := time.Now()
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if old, err = db.getMessage(ctx, tx, id); err != nil {
			return err
		}
		res, err := db.exec(ctx, tx, `UPDATE messages SET is_deleted = TRUE, updated_at = ? WHERE id = ? AND is_deleted = FALSE`,
			millis(now), id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		changed = n > 0
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		updated := *old
		updated.IsDeleted = true
		updated.UpdatedAt = now
		db.publish(ctx, domain.Messages, domain.Update, old, &updated)
	}
	return nil
}

// CountUnreadSince counts non-deleted messages in a conversation created
// after since and not sent by excludeSender.
func (db *DB) CountUnreadSince(ctx context.Context, conversationID string, since time.Time, excludeSender string) (int, error) {
	var count int
	err := db.get(ctx, db, &count, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = ? AND created_at > ? AND sender_id <> ? AND is_deleted = FALSE`,
		conversationID, millis(since), excludeSender)
	return count, err
}
