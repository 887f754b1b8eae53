// Package sqlite backs the commerce repositories with SQLite.
//
// Each collection is a table with the indexed fields broken out and the line
// items kept as a JSON payload. The three storage primitives the core needs
// map directly onto SQL: find-one is a SELECT, insert-unique is an INSERT
// against a UNIQUE index, and update-if is an UPDATE with the current state
// in the WHERE clause checked through RowsAffected.
//
// WAL mode is enabled on Open so request handlers reading order state never
// block the webhook path writing it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"

	// Register the pure-Go SQLite driver. No CGO keeps the Docker build trivial.
	sqlite "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id              TEXT PRIMARY KEY,
    username        TEXT NOT NULL,
    credential_ref  TEXT NOT NULL,
    display_name    TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users(username);

CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    idempotency_key  TEXT NOT NULL,
    status           TEXT NOT NULL,
    total            INTEGER NOT NULL,

    -- Line items as a JSON array. Immutable after insert: no UPDATE in this
    -- package ever touches the column.
    items            TEXT NOT NULL,

    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

-- Idempotent create: two requests with the same key converge on one row.
CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_user_key ON orders(user_id, idempotency_key);

CREATE TABLE IF NOT EXISTS payment_intents (
    id               TEXT PRIMARY KEY,
    order_id         TEXT NOT NULL,
    amount           INTEGER NOT NULL,
    provider_ref     TEXT NOT NULL,
    status           TEXT NOT NULL,
    idempotency_key  TEXT NOT NULL,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_intents_order_key ON payment_intents(order_id, idempotency_key);
CREATE UNIQUE INDEX IF NOT EXISTS ux_intents_provider_ref ON payment_intents(provider_ref);

-- At most one live (non-FAILED) intent per order, enforced where it counts:
-- a partial unique index makes the losing insert of a race fail instead of
-- persisting a second live intent.
CREATE UNIQUE INDEX IF NOT EXISTS ux_intents_live_order ON payment_intents(order_id) WHERE status != 'FAILED';
`

// Store bundles the SQLite-backed repositories over one connection pool.
type Store struct {
	db      *sql.DB
	Orders  *OrderRepository
	Intents *IntentRepository
	Users   *UserRepository
}

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/commerce.db")
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{
		db:      db,
		Orders:  &OrderRepository{db: db},
		Intents: &IntentRepository{db: db},
		Users:   &UserRepository{db: db},
	}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure from the modernc driver.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		// SQLITE_CONSTRAINT_UNIQUE and SQLITE_CONSTRAINT_PRIMARYKEY.
		return se.Code() == 2067 || se.Code() == 1555
	}
	return false
}

// conditionalUpdate runs an update-if statement and translates "no row
// matched" into the storage conflict the domain layer retries on.
func conditionalUpdate(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStorageConflict
	}
	return nil
}

// formatTime and parseTime keep timestamps as RFC3339 TEXT, the SQLite idiom.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
