package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/domain"
)

// NotifyChannel is the Postgres channel carrying row changes between daemons.
const NotifyChannel = "campus_changes"

// Postgres rejects NOTIFY payloads of 8000 bytes or more.
const maxNotifyPayload = 7900

// publish announces a committed row change. On SQLite the change goes straight
// to the bus. On Postgres it is sent with pg_notify and reaches the bus through
// the Relay, so every daemon sharing the database sees it exactly once.
func (db *DB) publish(ctx context.Context, coll domain.Collection, op domain.Op, old, new any) {
	if db.bus == nil {
		return
	}
	ch, err := domain.NewChange(uuid.NewString(), coll, op, old, new)
	if err != nil {
		db.logger.Error("failed to build change", zap.Error(err), zap.String("collection", string(coll)))
		return
	}

	if db.dialect == Postgres {
		payload, err := json.Marshal(ch)
		if err != nil || len(payload) >= maxNotifyPayload {
			db.logger.Warn("change too large for pg_notify, publishing locally",
				zap.String("kind", ch.Kind()), zap.Int("bytes", len(payload)))
		} else {
			_, err := db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, string(payload))
			if err == nil {
				return
			}
			db.logger.Warn("pg_notify failed, publishing locally", zap.Error(err), zap.String("kind", ch.Kind()))
		}
	}

	db.bus.Publish(bus.Event{Kind: ch.Kind(), Timestamp: time.Now(), Payload: ch})
}
