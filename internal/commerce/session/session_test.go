package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
	"github.com/jcmexdev/commerce-core/internal/storage/memory"
)

func TestResolveMissingToken(t *testing.T) {
	r := NewResolver(NewMemoryStore())

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestResolveUnknownToken(t *testing.T) {
	r := NewResolver(NewMemoryStore())

	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestResolveValidToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "tok-1", Record{
		UserID:    "user-1",
		Username:  "alice",
		ExpiresAt: time.Now().Add(time.Hour),
	}, time.Hour))

	r := NewResolver(store)
	identity, err := r.Resolve(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestResolveExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "tok-1", Record{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}, time.Hour))

	r := NewResolver(store)
	_, err := r.Resolve(context.Background(), "tok-1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSignInCreatesUserAndSession(t *testing.T) {
	store := NewMemoryStore()
	users := memory.NewStore().Users
	m := NewManager(store, users, time.Hour)
	ctx := context.Background()

	token, user, err := m.SignIn(ctx, "alice", "passphrase")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)

	identity, err := NewResolver(store).Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)

	stored, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.NotEqual(t, "passphrase", stored.CredentialRef)
}

func TestSignInVerifiesCredential(t *testing.T) {
	store := NewMemoryStore()
	users := memory.NewStore().Users
	m := NewManager(store, users, time.Hour)
	ctx := context.Background()

	_, first, err := m.SignIn(ctx, "alice", "passphrase")
	require.NoError(t, err)

	// Same credential: same user.
	_, again, err := m.SignIn(ctx, "alice", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// Wrong credential: rejected.
	_, _, err = m.SignIn(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSignInRejectsEmptyInput(t *testing.T) {
	m := NewManager(NewMemoryStore(), memory.NewStore().Users, time.Hour)

	_, _, err := m.SignIn(context.Background(), "", "cred")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, _, err = m.SignIn(context.Background(), "alice", "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSignOutDestroysSession(t *testing.T) {
	store := NewMemoryStore()
	users := memory.NewStore().Users
	m := NewManager(store, users, time.Hour)
	ctx := context.Background()

	token, _, err := m.SignIn(ctx, "alice", "passphrase")
	require.NoError(t, err)

	require.NoError(t, m.SignOut(ctx, token))

	_, err = NewResolver(store).Resolve(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// Signing out an unknown or empty token is not an error.
	assert.NoError(t, m.SignOut(ctx, token))
	assert.NoError(t, m.SignOut(ctx, ""))
}
