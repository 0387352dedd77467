package shared

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata/internal/platform/httpx"
)

func newSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "secret", time.Hour), mr
}

func TestSessionIssueResolveRevoke(t *testing.T) {
	store, mr := newSessionStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	require.NoError(t, err)

	userID, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Len(t, mr.Keys(), 1)

	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestSessionRejectsForgedSignature(t *testing.T) {
	store, _ := newSessionStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 7)
	require.NoError(t, err)

	forged := token[:len(token)-1] + "0"
	if forged == token {
		forged = token[:len(token)-1] + "1"
	}
	_, err = store.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	store, mr := newSessionStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 9)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(ContextWithUserID(context.Background(), 5))
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 10, 45)
	assert.Equal(t, 5, p.TotalPages)
	assert.Equal(t, 20, p.Offset())

	r := httptest.NewRequest("GET", "/customers?page=2&per_page=500", nil)
	page, perPage := PageParams(r)
	assert.Equal(t, 2, page)
	assert.Equal(t, 100, perPage)
}
