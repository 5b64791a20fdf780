package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryRevoker_ForgetsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "old", now.Add(time.Minute)))
	require.NoError(t, r.Revoke(ctx, "already-expired", now.Add(-time.Minute)))
	assert.Len(t, r.revoked, 1)

	now = now.Add(2 * time.Minute)
	revoked, err := r.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "new", now.Add(time.Minute)))
	assert.Len(t, r.revoked, 1, "expired entries are pruned on write")
}

func TestMemoryRevoker_UserCutoff(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 500_000_000, time.UTC)
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	cutoff, err := r.RevokedBefore(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())

	require.NoError(t, r.RevokeUser(ctx, "user-1", now, time.Hour))
	cutoff, err = r.RevokedBefore(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, now.Truncate(time.Second), cutoff, "kept at token iat precision")

	now = now.Add(time.Hour)
	cutoff, err = r.RevokedBefore(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero(), "forgotten once every older token has expired")
}

func TestConnect_ParsesURLAndAddress(t *testing.T) {
	c, err := Connect("redis://:pw@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	c, err = Connect("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", c.Options().Addr)

	_, err = Connect("redis://cache:6379/notanumber")
	assert.Error(t, err)
}
