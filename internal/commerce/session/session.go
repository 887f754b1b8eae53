// Package session resolves opaque request tokens to user identities and
// manages the signin/signout lifecycle. The store itself is external; this
// package only reads and writes through the Store port.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
)

// ErrNotFound is returned by Store implementations for an absent token.
var ErrNotFound = errors.New("session not found")

// Record is the session payload kept in the store: an ephemeral mapping from
// token to user, with an expiry.
type Record struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the port to the session store.
type Store interface {
	Put(ctx context.Context, token string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
}

// Resolver maps request tokens to identities. No side effects.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver builds a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Resolve returns the identity behind a session token, or
// ErrUnauthenticated when the token is missing, unknown or expired.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	rec, err := r.store.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("session: resolve token: %w", err)
	}
	if !rec.ExpiresAt.IsZero() && r.now().After(rec.ExpiresAt) {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return domain.Identity{UserID: rec.UserID, Username: rec.Username}, nil
}

// Manager handles signin and signout. Signin verifies the presented
// credential against the stored reference (first signin records it),
// upserts the user and creates a session.
type Manager struct {
	store Store
	users domain.UserRepository
	ttl   time.Duration
	now   func() time.Time
}

// NewManager builds a Manager. ttl bounds every session it creates.
func NewManager(store Store, users domain.UserRepository, ttl time.Duration) *Manager {
	return &Manager{store: store, users: users, ttl: ttl, now: time.Now}
}

// SignIn authenticates username/credential, upserts the user record and
// returns a fresh session token together with the user.
func (m *Manager) SignIn(ctx context.Context, username, credential string) (string, *domain.User, error) {
	if username == "" || credential == "" {
		return "", nil, domain.ErrUnauthenticated
	}

	ref := credentialRef(credential)
	user, err := m.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = &domain.User{
			ID:            uuid.NewString(),
			Username:      username,
			CredentialRef: ref,
			DisplayName:   username,
			CreatedAt:     m.now().UTC(),
		}
		if err := m.users.Upsert(ctx, user); err != nil {
			return "", nil, fmt.Errorf("session: upsert user: %w", err)
		}
	case err != nil:
		return "", nil, fmt.Errorf("session: lookup user: %w", err)
	case user.CredentialRef != ref:
		return "", nil, domain.ErrUnauthenticated
	}

	token := uuid.NewString()
	rec := Record{
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: m.now().UTC().Add(m.ttl),
	}
	if err := m.store.Put(ctx, token, rec, m.ttl); err != nil {
		return "", nil, fmt.Errorf("session: store session: %w", err)
	}
	return token, user, nil
}

// SignOut destroys the session behind the token. Destroying an unknown
// token is not an error.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session: delete session: %w", err)
	}
	return nil
}

// credentialRef derives the opaque reference stored for a credential.
// The credential itself is never persisted.
func credentialRef(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
