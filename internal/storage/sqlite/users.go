package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
)

var _ domain.UserRepository = (*UserRepository)(nil)

// UserRepository is the SQLite adapter for the users collection.
type UserRepository struct {
	db *sql.DB
}

// Upsert inserts the user or refreshes its display attributes on conflict.
// The credential reference is written only on first insert: it identifies
// the credential verified at registration and is read-only afterwards.
func (r *UserRepository) Upsert(ctx context.Context, u *domain.User) error {
	const q = `
		INSERT INTO users (id, username, credential_ref, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET display_name = excluded.display_name`

	_, err := r.db.ExecContext(ctx, q,
		u.ID,
		u.Username,
		u.CredentialRef,
		u.DisplayName,
		formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert user %q: %w", u.Username, err)
	}
	return nil
}

// FindByID returns a single user, or ErrUserNotFound.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const q = userSelect + ` WHERE id = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByUsername returns a single user, or ErrUserNotFound.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = userSelect + ` WHERE username = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, q, username))
}

const userSelect = `
	SELECT id, username, credential_ref, display_name, created_at
	FROM   users`

func (r *UserRepository) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Username, &u.CredentialRef, &u.DisplayName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}
