// Package auth handles email/password accounts: signup, email verification,
// login sessions and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusreg/service/internal/email"
	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/session"
	"github.com/campusreg/service/internal/token"
	"github.com/campusreg/service/internal/user"
)

const (
	verificationTokenTTL  = 24 * time.Hour
	passwordResetTokenTTL = time.Hour
)

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned on login before the address is confirmed.
	ErrEmailNotVerified = errors.New("email address not verified")
	// ErrInvalidEmail is returned for addresses that do not parse.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrNameRequired is returned when signup has no name.
	ErrNameRequired = errors.New("name is required")
)

// Users is the subset of the user service that auth needs. *user.Service implements it.
type Users interface {
	Create(ctx context.Context, nu user.NewUser) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// Issuer signs session tokens. *token.Manager implements it.
type Issuer interface {
	Issue(userID, email, role string) (string, *token.Claims, error)
	TTL() time.Duration
}

// Deps are the collaborators of Service.
type Deps struct {
	Users   Users
	Tokens  TokenStore
	Hasher  Hasher
	Issuer  Issuer
	Revoker session.Revoker
	Mailer  email.Sender
	BaseURL string // prefix for links in emails
	Log     logging.Logger
}

// Service contains the business logic for account authentication.
type Service struct {
	Deps
	now func() time.Time
}

// NewService creates a new auth Service.
func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &Service{Deps: d, now: time.Now}
}

// SignupInput is the data needed to create an account.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	CollegeID *string
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// Signup creates an unverified account and emails a verification link.
// A failed email send is logged; the user can ask for another link.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*user.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.CollegeID != nil {
		id := strings.TrimSpace(*in.CollegeID)
		if id == "" {
			in.CollegeID = nil
		} else if _, err := uuid.Parse(id); err != nil {
			return nil, user.ErrUnknownCollege
		} else {
			in.CollegeID = &id
		}
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.Users.Create(ctx, user.NewUser{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         "User",
		CollegeID:    in.CollegeID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, u); err != nil {
		s.Log.Warn("send verification email", logging.String("user_id", u.ID), logging.Err(err))
	}
	return u, nil
}

// VerifyEmail consumes a verification token and confirms the owner's address.
func (s *Service) VerifyEmail(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrInvalidToken
	}
	userID, err := s.Tokens.ConsumeEmailToken(ctx, TokenVerification, hashToken(raw))
	if err != nil {
		return err
	}
	if err := s.Users.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// ResendVerification sends a new verification link. Unknown and already
// verified addresses succeed silently.
func (s *Service) ResendVerification(ctx context.Context, addr string) error {
	u, err := s.Users.GetByEmail(ctx, addr)
	if errors.Is(err, user.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return nil
	}
	if err := s.Tokens.DeleteUserTokens(ctx, u.ID, TokenVerification); err != nil {
		return err
	}
	return s.sendVerification(ctx, u)
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, addr, password string) (*LoginResult, error) {
	u, err := s.Users.GetByEmail(ctx, addr)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.Hasher.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	signed, claims, err := s.Issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: signed, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Logout revokes the session until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *token.Claims) error {
	if s.Revoker == nil || claims == nil || claims.ID == "" {
		return nil
	}
	expiresAt := s.now().Add(s.Issuer.TTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.Revoker.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, addr string) error {
	u, err := s.Users.GetByEmail(ctx, addr)
	if errors.Is(err, user.ErrNotFound) {
		s.Log.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Tokens.DeleteUserTokens(ctx, u.ID, TokenPasswordReset); err != nil {
		return err
	}

	raw, err := s.newEmailToken(ctx, u.ID, TokenPasswordReset, passwordResetTokenTTL)
	if err != nil {
		return err
	}
	msg := email.PasswordResetMessage(u.Email, s.link("/reset-password", raw))
	if err := s.Mailer.Send(ctx, msg); err != nil {
		s.Log.Error("send password reset email", logging.String("user_id", u.ID), logging.Err(err))
	}
	return nil
}

// ResetPassword consumes a reset token, replaces the owner's password and
// ends every session issued before the reset.
func (s *Service) ResetPassword(ctx context.Context, raw, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if raw == "" {
		return ErrInvalidToken
	}
	userID, err := s.Tokens.ConsumeEmailToken(ctx, TokenPasswordReset, hashToken(raw))
	if err != nil {
		return err
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.Users.SetPasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if s.Revoker != nil {
		if err := s.Revoker.RevokeUser(ctx, userID, s.now(), s.Issuer.TTL()); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return s.Tokens.DeleteUserTokens(ctx, userID, TokenPasswordReset)
}

func (s *Service) sendVerification(ctx context.Context, u *user.User) error {
	raw, err := s.newEmailToken(ctx, u.ID, TokenVerification, verificationTokenTTL)
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, email.VerificationMessage(u.Email, u.Name, s.link("/verify", raw)))
}

func (s *Service) newEmailToken(ctx context.Context, userID string, typ TokenType, ttl time.Duration) (string, error) {
	raw, hash, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.Tokens.CreateEmailToken(ctx, userID, typ, hash, s.now().Add(ttl)); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) link(path, raw string) string {
	return s.BaseURL + path + "?token=" + url.QueryEscape(raw)
}
