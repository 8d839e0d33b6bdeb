package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, time.Hour), mr
}

func TestSessionStoreIssueAndLookup(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	issued, err := store.Issue(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	got, err := store.Lookup(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.UserID)
	require.Equal(t, issued.Token, got.Token)
}

func TestSessionStoreRevoke(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	issued, err := store.Issue(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, issued.Token))

	_, err = store.Lookup(ctx, issued.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, store.Revoke(ctx, issued.Token))
}

func TestSessionStoreExpiry(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()

	issued, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	_, err = store.Lookup(ctx, issued.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreRejectsMalformedToken(t *testing.T) {
	store, _ := newTestSessionStore(t)

	_, err := store.Lookup(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrMalformedToken)
}
