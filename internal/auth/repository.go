package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenType distinguishes the single-use tokens sent by email.
type TokenType string

const (
	TokenVerification  TokenType = "verification"
	TokenPasswordReset TokenType = "password_reset"
)

// ErrInvalidToken is returned when an email token is unknown, used or expired.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenStore persists hashed email tokens.
type TokenStore interface {
	CreateEmailToken(ctx context.Context, userID string, typ TokenType, hash string, expiresAt time.Time) error
	ConsumeEmailToken(ctx context.Context, typ TokenType, hash string) (string, error)
	DeleteUserTokens(ctx context.Context, userID string, typ TokenType) error
}

// Repository handles email token persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new auth Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateEmailToken stores the hash of a freshly generated token.
func (r *Repository) CreateEmailToken(ctx context.Context, userID string, typ TokenType, hash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO email_tokens (user_id, token_type, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		userID, string(typ), hash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert email token: %w", err)
	}
	return nil
}

// ConsumeEmailToken marks an active token as used and returns its user id.
func (r *Repository) ConsumeEmailToken(ctx context.Context, typ TokenType, hash string) (string, error) {
	var userID string
	err := r.db.QueryRow(ctx,
		`UPDATE email_tokens SET used_at = NOW()
		 WHERE token_hash = $1 AND token_type = $2
		   AND used_at IS NULL AND expires_at > NOW()
		 RETURNING user_id`,
		hash, string(typ),
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("consume email token: %w", err)
	}
	return userID, nil
}

// DeleteUserTokens drops every unused token of the given type for a user.
func (r *Repository) DeleteUserTokens(ctx context.Context, userID string, typ TokenType) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM email_tokens WHERE user_id = $1 AND token_type = $2 AND used_at IS NULL`,
		userID, string(typ),
	)
	if err != nil {
		return fmt.Errorf("delete email tokens: %w", err)
	}
	return nil
}

// generateToken returns a random token for an email link and the hash that is stored.
func generateToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
