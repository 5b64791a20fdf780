package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/response"
	"github.com/campusreg/service/internal/user"
)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc          *Service
	cookieSecure bool
	log          logging.Logger
}

// NewHandler creates a new auth Handler. cookieSecure sets the Secure flag on
// the session cookie.
func NewHandler(svc *Service, cookieSecure bool, log logging.Logger) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure, log: log}
}

type signupRequest struct {
	Name      string  `json:"name"      example:"Ada Lovelace"`
	Email     string  `json:"email"     example:"ada@example.com"`
	Password  string  `json:"password"  example:"correct-horse"`
	CollegeID *string `json:"collegeId" example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
}

type loginRequest struct {
	Email    string `json:"email"    example:"ada@example.com"`
	Password string `json:"password" example:"correct-horse"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" example:"ada@example.com"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    example:"9f86d081884c7d65..."`
	Password string `json:"password" example:"new-correct-horse"`
}

type loginData struct {
	User      *user.User `json:"user"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Signup godoc
//
//	@Summary		Create account
//	@Description	Create an unverified account and send a verification email.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signupRequest	true	"Account details"
//	@Success		201		{object}	response.Envelope{data=user.User}
//	@Failure		400		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/user/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	u, err := h.svc.Signup(r.Context(), SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		CollegeID: req.CollegeID,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		response.BadRequest(w, err.Error())
		return
	case errors.Is(err, user.ErrUnknownCollege):
		response.BadRequest(w, "college not found")
		return
	case errors.Is(err, user.ErrAlreadyExists):
		response.Conflict(w, "email already registered")
		return
	default:
		h.log.Error("signup", logging.Err(err))
		response.InternalError(w)
		return
	}

	response.Created(w, "account created, check your email to verify it", u)
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Check credentials and set the Authentication session cookie.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	response.Envelope{data=loginData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		429		{object}	response.Envelope
//	@Router			/user/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(w, err.Error())
		return
	case errors.Is(err, ErrEmailNotVerified):
		response.Forbidden(w, "please verify your email before logging in")
		return
	default:
		h.log.Error("login", logging.Err(err))
		response.InternalError(w)
		return
	}

	http.SetCookie(w, h.sessionCookie(res.Token, res.ExpiresAt))
	response.OK(w, "logged in", loginData{User: res.User, ExpiresAt: res.ExpiresAt})
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Revoke the current session and clear the cookie.
//	@Tags			auth
//	@Produce		json
//	@Security		CookieAuth
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/user/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.IdentityFrom(r.Context())
	http.SetCookie(w, h.sessionCookie("", time.Unix(0, 0)))

	if err := h.svc.Logout(r.Context(), claims); err != nil {
		h.log.Error("logout", logging.Err(err))
		response.InternalError(w)
		return
	}
	response.OK(w, "logged out", nil)
}

// VerifyEmail godoc
//
//	@Summary		Verify email
//	@Description	Confirm an email address with the token from the verification link.
//	@Tags			auth
//	@Produce		json
//	@Param			token	query		string	true	"Verification token"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Router			/verify [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	err := h.svc.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if errors.Is(err, ErrInvalidToken) {
		response.BadRequest(w, "invalid or expired verification link")
		return
	}
	if err != nil {
		h.log.Error("verify email", logging.Err(err))
		response.InternalError(w)
		return
	}
	response.OK(w, "email verified", nil)
}

// ResendEmail godoc
//
//	@Summary		Resend verification email
//	@Description	Send a new verification link. Always succeeds for well-formed input.
//	@Tags			auth
//	@Produce		json
//	@Param			email	query		string	true	"Email address"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		429		{object}	response.Envelope
//	@Router			/resend-email [get]
func (h *Handler) ResendEmail(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("email")
	if addr == "" {
		response.BadRequest(w, "email is required")
		return
	}
	if err := h.svc.ResendVerification(r.Context(), addr); err != nil {
		h.log.Error("resend verification", logging.Err(err))
		response.InternalError(w)
		return
	}
	response.OK(w, "if the account exists and is unverified, a new link has been sent", nil)
}

// ForgotPassword godoc
//
//	@Summary		Request password reset
//	@Description	Email a password reset link if the account exists.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		forgotPasswordRequest	true	"Email address"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		429		{object}	response.Envelope
//	@Router			/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil || req.Email == "" {
		response.BadRequest(w, "email is required")
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.log.Error("forgot password", logging.Err(err))
		response.InternalError(w)
		return
	}
	response.OK(w, "if an account with that email exists, a reset link has been sent", nil)
}

// ResetPassword godoc
//
//	@Summary		Reset password
//	@Description	Set a new password using a token from a reset email.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		resetPasswordRequest	true	"Token and new password"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Router			/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	err := h.svc.ResetPassword(r.Context(), req.Token, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrWeakPassword):
		response.BadRequest(w, err.Error())
		return
	case errors.Is(err, ErrInvalidToken):
		response.BadRequest(w, "invalid or expired reset link")
		return
	default:
		h.log.Error("reset password", logging.Err(err))
		response.InternalError(w)
		return
	}
	response.OK(w, "password updated", nil)
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(time.Until(expires).Seconds())
	}
	return c
}
