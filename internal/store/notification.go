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

type notificationRow struct {
	ID         string         `db:"id"`
	ReceiverID string         `db:"receiver_id"`
	SenderID   sql.NullString `db:"sender_id"`
	Message    string         `db:"message"`
	Source     string         `db:"source"`
	Viewed     bool           `db:"viewed"`
	CreatedAt  int64          `db:"created_at"`
}

const notificationColumns = `id, receiver_id, sender_id, message, source, viewed, created_at`

func (r notificationRow) toDomain() domain.Notification {
	n := domain.Notification{
		ID:         r.ID,
		ReceiverID: r.ReceiverID,
		Message:    r.Message,
		Source:     r.Source,
		Viewed:     r.Viewed,
		CreatedAt:  fromMillis(r.CreatedAt),
	}
	if r.SenderID.Valid {
		s := r.SenderID.String
		n.SenderID = &s
	}
	return n
}

// CreateNotification inserts n, assigning ID and CreatedAt when unset.
func (db *DB) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ReceiverID == "" {
		return fmt.Errorf("%w: notification receiver is required", domain.ErrInvalid)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	var sender sql.NullString
	if n.SenderID != nil {
		sender = sql.NullString{String: *n.SenderID, Valid: true}
	}
	if _, err := db.exec(ctx, db, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.ReceiverID, sender, n.Message, n.Source, n.Viewed, millis(n.CreatedAt)); err != nil {
		return conflict(err)
	}
	db.publish(ctx, domain.Notifications, domain.Insert, nil, n)
	return nil
}

// GetNotification returns a notification by id.
func (db *DB) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	return db.getNotification(ctx, db, id)
}

func (db *DB) getNotification(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Notification, error) {
	var row notificationRow
	err := db.get(ctx, q, &row, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	n := row.toDomain()
	return &n, nil
}

// ListNotifications returns notifications for a receiver, newest first.
func (db *DB) ListNotifications(ctx context.Context, receiverID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE receiver_id = ?`
	if unreadOnly {
		query += ` AND viewed = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	var rows []notificationRow
	if err := db.selectRows(ctx, db, &rows, query, receiverID, limit); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// CountUnreadNotifications counts unviewed notifications for a receiver.
func (db *DB) CountUnreadNotifications(ctx context.Context, receiverID string) (int, error) {
	var count int
	err := db.get(ctx, db, &count, `SELECT COUNT(*) FROM notifications WHERE receiver_id = ? AND viewed = FALSE`, receiverID)
	return count, err
}

// MarkNotificationRead sets viewed on one notification. Marking an already
// viewed notification is a no-op and publishes nothing.
func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	var old *domain.Notification
	changed := false
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		old, err = db.getNotification(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := db.exec(ctx, tx, `UPDATE notifications SET viewed = TRUE WHERE id = ? AND viewed = FALSE`, id)
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
		updated.Viewed = true
		db.publish(ctx, domain.Notifications, domain.Update, old, &updated)
	}
	return nil
}

// MarkAllNotificationsRead sets viewed on every unviewed notification of the
// receiver and publishes one update per row. Returns the number of rows changed.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, receiverID string) (int, error) {
	var rows []notificationRow
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := db.selectRows(ctx, tx, &rows, `
			SELECT `+notificationColumns+` FROM notifications
			WHERE receiver_id = ? AND viewed = FALSE`, receiverID); err != nil {
			return err
		}
		_, err := db.exec(ctx, tx, `UPDATE notifications SET viewed = TRUE WHERE receiver_id = ? AND viewed = FALSE`, receiverID)
		return err
	})
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		old := r.toDomain()
		updated := old
		updated.Viewed = true
		db.publish(ctx, domain.Notifications, domain.Update, &old, &updated)
	}
	return len(rows), nil
}

// DeleteNotification removes a notification.
func (db *DB) DeleteNotification(ctx context.Context, id string) error {
	var old *domain.Notification
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if old, err = db.getNotification(ctx, tx, id); err != nil {
			return err
		}
		_, err = db.exec(ctx, tx, `DELETE FROM notifications WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	db.publish(ctx, domain.Notifications, domain.Delete, old, nil)
	return nil
}
