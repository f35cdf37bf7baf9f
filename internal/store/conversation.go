package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matheus3301/campus/internal/domain"
)

type conversationRow struct {
	ID            string `db:"id"`
	P1ID          string `db:"participant1_id"`
	P1Role        string `db:"participant1_role"`
	P2ID          string `db:"participant2_id"`
	P2Role        string `db:"participant2_role"`
	LastMessageAt int64  `db:"last_message_at"`
	CreatedAt     int64  `db:"created_at"`
}

const conversationColumns = `id, participant1_id, participant1_role, participant2_id, participant2_role, last_message_at, created_at`

func (r conversationRow) toDomain() domain.Conversation {
	return domain.Conversation{
		ID:            r.ID,
		Participant1:  domain.Identity{ID: r.P1ID, Role: domain.Role(r.P1Role)},
		Participant2:  domain.Identity{ID: r.P2ID, Role: domain.Role(r.P2Role)},
		LastMessageAt: fromMillis(r.LastMessageAt),
		CreatedAt:     fromMillis(r.CreatedAt),
	}
}

// ListConversations returns the conversations userID takes part in, most
// recently active first.
func (db *DB) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var rows []conversationRow
	if err := db.selectRows(ctx, db, &rows, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE participant1_id = ? OR participant2_id = ?
		ORDER BY last_message_at DESC`, userID, userID); err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetConversation returns a conversation by id.
func (db *DB) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return db.getConversation(ctx, db, `id = ?`, id)
}

// FindConversation returns the conversation between a and b in either order.
func (db *DB) FindConversation(ctx context.Context, a, b domain.Identity) (*domain.Conversation, error) {
	return db.getConversation(ctx, db, `pair_key = ?`, domain.PairKey(a, b))
}

func (db *DB) getConversation(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (*domain.Conversation, error) {
	var row conversationRow
	err := db.get(ctx, q, &row, `SELECT `+conversationColumns+` FROM conversations WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

// CreateConversation returns the conversation between a and b, inserting it
// if none exists. The bool reports whether a row was inserted.
func (db *DB) CreateConversation(ctx context.Context, a, b domain.Identity) (*domain.Conversation, bool, error) {
	if a.IsZero() || b.IsZero() {
		return nil, false, fmt.Errorf("%w: conversation needs two participants", domain.ErrInvalid)
	}
	if a == b {
		return nil, false, fmt.Errorf("%w: conversation participants must differ", domain.ErrInvalid)
	}
	for _, id := range []domain.Identity{a, b} {
		if _, err := id.Role.Collection(); err != nil {
			return nil, false, err
		}
	}

	now := millis(time.Now())
	res, err := db.exec(ctx, db, `
		INSERT INTO conversations (`+conversationColumns+`, pair_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pair_key) DO NOTHING`,
		uuid.NewString(), a.ID, string(a.Role), b.ID, string(b.Role), now, now, domain.PairKey(a, b))
	if err != nil {
		return nil, false, fmt.Errorf("insert conversation: %w", err)
	}
	inserted, _ := res.RowsAffected()

	c, err := db.FindConversation(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	if inserted > 0 {
		db.publish(ctx, domain.Conversations, domain.Insert, nil, c)
	}
	return c, inserted > 0, nil
}

// DeleteConversation removes a conversation and, by cascade, its messages.
func (db *DB) DeleteConversation(ctx context.Context, id string) error {
	var old *domain.Conversation
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if old, err = db.getConversation(ctx, tx, `id = ?`, id); err != nil {
			return err
		}
		_, err = db.exec(ctx, tx, `DELETE FROM conversations WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	db.publish(ctx, domain.Conversations, domain.Delete, old, nil)
	return nil
}

// TouchConversation advances last_message_at to at if it is newer.
func (db *DB) TouchConversation(ctx context.Context, id string, at time.Time) error {
	var old *domain.Conversation
	changed := false
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		old, changed, err = db.touch(ctx, tx, id, at)
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		updated := *old
		updated.LastMessageAt = at
		db.publish(ctx, domain.Conversations, domain.Update, old, &updated)
	}
	return nil
}

func (db *DB) touch(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) (*domain.Conversation, bool, error) {
	old, err := db.getConversation(ctx, tx, `id = ?`, id)
	if err != nil {
		return nil, false, err
	}
	res, err := db.exec(ctx, tx, `UPDATE conversations SET last_message_at = ? WHERE id = ? AND last_message_at < ?`,
		millis(at), id, millis(at))
	if err != nil {
		return nil, false, err
	}
	n, _ := res.RowsAffected()
	return old, n > 0, nil
}
