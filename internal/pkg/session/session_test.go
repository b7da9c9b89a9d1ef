package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	m := NewManager(client)

	s := &SessionData{JTI: "01J0", UserID: 7, Username: "dave", Roles: []string{"delivery_agent"}, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, m.CreateSession(ctx, s))
	require.NoError(t, m.CreateSession(ctx, &SessionData{JTI: "01J1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}))

	got, err := m.GetSession(ctx, 7, "01J0")
	require.NoError(t, err)
	assert.Equal(t, "dave", got.Username)
	assert.Greater(t, mr.TTL("session:7:01J0"), time.Duration(0), "activity keeps the expiry")

	require.NoError(t, m.InvalidateSession(ctx, 7, "01J0"))
	_, err = m.GetSession(ctx, 7, "01J0")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.InvalidateAllUserSessions(ctx, 7))
	_, err = m.GetSession(ctx, 7, "01J1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	m := NewManager(client)

	require.NoError(t, m.CreateSession(ctx, &SessionData{JTI: "a", UserID: 1, ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)
	_, err := m.GetSession(ctx, 1, "a")
	require.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, m.CreateSession(ctx, &SessionData{JTI: "b", UserID: 1, ExpiresAt: time.Now().Add(-time.Minute)}))
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	m := NewManager(client)

	listed, err := m.IsTokenBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, m.BlacklistToken(ctx, "jti", time.Minute))
	listed, err = m.IsTokenBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, listed)

	mr.FastForward(2 * time.Minute)
	listed, err = m.IsTokenBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestLoginRateLimit(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	r := NewRateLimiter(client)

	for i := 1; i <= maxLoginAttempts; i++ {
		ok, remaining, err := r.CheckLoginAttempt(ctx, "10.0.0.1", "Dave")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(maxLoginAttempts-i), remaining)
	}
	ok, _, err := r.CheckLoginAttempt(ctx, "10.0.0.1", "dave")
	require.NoError(t, err)
	assert.False(t, ok, "username is case-insensitive")

	ok, _, err = r.CheckLoginAttempt(ctx, "10.0.0.2", "dave")
	require.NoError(t, err)
	assert.True(t, ok, "other address has its own budget")

	mr.FastForward(loginWindow + time.Second)
	ok, _, err = r.CheckLoginAttempt(ctx, "10.0.0.1", "dave")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.ResetLoginAttempts(ctx, "10.0.0.1", "dave"))
	assert.False(t, mr.Exists("ratelimit:login:10.0.0.1:dave"))
}
