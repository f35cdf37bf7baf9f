package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/domain"
)

// Dialect is the SQL engine behind a DB.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// DB wraps the campus database. Every write publishes a domain.Change.
type DB struct {
	*sqlx.DB
	dialect Dialect
	dsn     string
	bus     *bus.Bus
	logger  *zap.Logger
}

// Open connects to dsn. postgres:// and postgresql:// DSNs use lib/pq; anything
// else is treated as a SQLite path (an optional sqlite:// prefix is stripped)
// opened with WAL mode and foreign keys. b may be nil, in which case changes
// are not published.
func Open(dsn string, b *bus.Bus, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect, source := parseDSN(dsn)
	x, err := sqlx.Open(string(dialect), source)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := x.Ping(); err != nil {
		_ = x.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if dialect == Postgres {
		x.SetMaxOpenConns(25)
		x.SetMaxIdleConns(5)
	}
	return &DB{DB: x, dialect: dialect, dsn: source, bus: b, logger: logger}, nil
}

func parseDSN(dsn string) (Dialect, string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return Postgres, dsn
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return SQLite, path + sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// Dialect returns the SQL engine in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// DSN returns the connection string passed to the driver.
func (db *DB) DSN() string {
	return db.dsn
}

func (db *DB) exec(ctx context.Context, q sqlx.ExecerContext, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, db.Rebind(query), args...)
}

func (db *DB) get(ctx context.Context, q sqlx.QueryerContext, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q, dest, db.Rebind(query), args...)
}

func (db *DB) selectRows(ctx context.Context, q sqlx.QueryerContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q, dest, db.Rebind(query), args...)
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// conflict wraps unique-constraint violations of either driver in
// domain.ErrConflict.
func conflict(err error) error {
	var lite sqlite3.Error
	if errors.As(err, &lite) && (lite.ExtendedCode == sqlite3.ErrConstraintUnique || lite.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	var pg *pq.Error
	if errors.As(err, &pg) && pg.Code == "23505" {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
