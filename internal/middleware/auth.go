package middleware

import (
	"context"
	"net/http"

	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/response"
	"github.com/campusreg/service/internal/session"
	"github.com/campusreg/service/internal/token"
)

// CookieName is the cookie that carries the session token.
const CookieName = "Authentication"

// Role names.
const (
	RoleUser         = "User"
	RolePaymentAdmin = "PaymentAdmin"
)

// Verifier validates a raw session token.
type Verifier interface {
	Verify(raw string) token.Result
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated claims.
func WithIdentity(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, identityKey{}, claims)
}

// IdentityFrom returns the claims attached by RequireAuth.
func IdentityFrom(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(identityKey{}).(*token.Claims)
	return claims, ok && claims != nil
}

// RequireAuth returns middleware that validates the session token from the
// Authentication cookie and attaches its claims to the request context.
//
//	no cookie                 -> 401
//	expired or bad signature  -> 403
//	revoked by logout         -> 403
//	issued before a reset     -> 403
//	malformed token           -> 401
//	revocation lookup failure -> 401
//
// revoker may be nil.
func RequireAuth(verifier Verifier, revoker session.Revoker, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				response.Unauthorized(w, "Authentication required")
				return
			}

			res := verifier.Verify(cookie.Value)
			switch res.Status {
			case token.Valid:
			case token.Expired, token.Invalid:
				response.Forbidden(w, "Invalid or expired token")
				return
			default:
				log.Debug("rejecting malformed token", logging.Err(res.Err))
				response.Unauthorized(w, "Unauthorized")
				return
			}

			if revoker != nil && res.Claims.ID != "" {
				revoked, err := revoker.IsRevoked(r.Context(), res.Claims.ID)
				if err != nil {
					log.Error("session revocation lookup failed", logging.Err(err))
					response.Unauthorized(w, "Unauthorized")
					return
				}
				if revoked {
					response.Forbidden(w, "Invalid or expired token")
					return
				}
			}

			if revoker != nil {
				cutoff, err := revoker.RevokedBefore(r.Context(), res.Claims.UserID())
				if err != nil {
					log.Error("user revocation lookup failed", logging.Err(err))
					response.Unauthorized(w, "Unauthorized")
					return
				}
				if !cutoff.IsZero() && (res.Claims.IssuedAt == nil || res.Claims.IssuedAt.Before(cutoff)) {
					response.Forbidden(w, "Invalid or expired token")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Claims)))
		})
	}
}

// RequireRole returns middleware that only lets through identities whose role
// equals role exactly. It must run after RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := IdentityFrom(r.Context())
			if !ok || claims.Role != role {
				response.Forbidden(w, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
