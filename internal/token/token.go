// Package token issues and verifies the signed session tokens carried in the
// Authentication cookie.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Status is the outcome of verifying a token.
type Status int

const (
	Valid Status = iota
	Expired
	Invalid
	Malformed
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Invalid:
		return "invalid"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Claims are the identity claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string { return c.Subject }

// Result carries Claims only when Status is Valid.
type Result struct {
	Status Status
	Claims *Claims
	Err    error
}

// Manager signs and verifies HS256 tokens with a shared secret. It holds no
// mutable state after construction.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager. ttl is the lifetime of issued tokens.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for the given user.
func (m *Manager) Issue(userID, email, role string) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email: email,
		Role:  role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry of raw. It never panics and never
// returns partially trusted claims.
func (m *Manager) Verify(raw string) Result {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Result{Status: Malformed, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return Result{Status: Expired, Err: err}
	default:
		return Result{Status: Invalid, Err: err}
	}

	if claims.Subject == "" || claims.Role == "" {
		return Result{Status: Invalid, Err: errors.New("token is missing subject or role")}
	}
	return Result{Status: Valid, Claims: claims}
}
