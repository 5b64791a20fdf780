// Package session tracks session tokens revoked by logout until they would
// have expired anyway.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records and looks up revoked sessions, either one token id at a
// time or every token of a user issued before a cutoff.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// RevokeUser invalidates tokens of userID issued before cutoff. The
	// record is kept for ttl, the longest a token can live.
	RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error
	// RevokedBefore returns the user's cutoff, or the zero time when none is set.
	RevokedBefore(ctx context.Context, userID string) (time.Time, error)
}

const (
	keyPrefix     = "session:revoked:"
	userKeyPrefix = "session:revoked-user:"
)

// RedisRevoker stores revocations as Redis keys that expire with the token.
type RedisRevoker struct {
	client *redis.Client
	now    func() time.Time
}

// Connect initializes a Redis client from a redis:// URL or a host:port address.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedisRevoker creates a revoker on an existing client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check session revocation: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRevoker) RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, userKeyPrefix+userID, cutoff.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (r *RedisRevoker) RevokedBefore(ctx context.Context, userID string) (time.Time, error) {
	sec, err := r.client.Get(ctx, userKeyPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("check user session revocation: %w", err)
	}
	return time.Unix(sec, 0), nil
}

// MemoryRevoker keeps revocations in process memory. Revocations are lost on
// restart and not shared between replicas.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	users   map[string]userCutoff
	now     func() time.Time
}

type userCutoff struct {
	cutoff time.Time
	until  time.Time
}

// NewMemoryRevoker creates an empty in-memory revoker.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: make(map[string]time.Time),
		users:   make(map[string]userCutoff),
		now:     time.Now,
	}
}

func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	if expiresAt.After(now) {
		r.revoked[tokenID] = expiresAt
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[tokenID]
	return ok && exp.After(r.now()), nil
}

func (r *MemoryRevoker) RevokeUser(_ context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, c := range r.users {
		if !c.until.After(now) {
			delete(r.users, id)
		}
	}
	if ttl > 0 {
		r.users[userID] = userCutoff{cutoff: cutoff.Truncate(time.Second), until: now.Add(ttl)}
	}
	return nil
}

func (r *MemoryRevoker) RevokedBefore(_ context.Context, userID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[userID]
	if !ok || !c.until.After(r.now()) {
		return time.Time{}, nil
	}
	return c.cutoff, nil
}
