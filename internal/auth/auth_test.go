package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusreg/service/internal/email"
	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/session"
	"github.com/campusreg/service/internal/token"
	"github.com/campusreg/service/internal/user"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*user.User
	seq   int
	fails error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*user.User{}} }

func (f *fakeUsers) Create(_ context.Context, nu user.NewUser) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr := user.NormalizeEmail(nu.Email)
	for _, u := range f.byID {
		if u.Email == addr {
			return nil, user.ErrAlreadyExists
		}
	}
	f.seq++
	u := &user.User{
		ID:           "user-" + string(rune('0'+f.seq)),
		Name:         strings.TrimSpace(nu.Name),
		Email:        addr,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CollegeID:    nu.CollegeID,
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, addr string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return nil, f.fails
	}
	addr = user.NormalizeEmail(addr)
	for _, u := range f.byID {
		if u.Email == addr {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (f *fakeUsers) SetPasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type storedToken struct {
	userID    string
	typ       TokenType
	expiresAt time.Time
	used      bool
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*storedToken
	now    func() time.Time
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: map[string]*storedToken{}, now: time.Now}
}

func (f *fakeTokens) CreateEmailToken(_ context.Context, userID string, typ TokenType, hash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[hash] = &storedToken{userID: userID, typ: typ, expiresAt: expiresAt}
	return nil
}

func (f *fakeTokens) ConsumeEmailToken(_ context.Context, typ TokenType, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[hash]
	if !ok || t.used || t.typ != typ || !t.expiresAt.After(f.now()) {
		return "", ErrInvalidToken
	}
	t.used = true
	return t.userID, nil
}

func (f *fakeTokens) DeleteUserTokens(_ context.Context, userID string, typ TokenType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, t := range f.byHash {
		if t.userID == userID && t.typ == typ && !t.used {
			delete(f.byHash, h)
		}
	}
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T) email.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	return m.sent[len(m.sent)-1]
}

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]+)`)

func linkToken(t *testing.T, msg email.Message) string {
	t.Helper()
	m := tokenInLink.FindStringSubmatch(msg.Text)
	require.Len(t, m, 2, "no token in %q", msg.Text)
	return m[1]
}

type fixture struct {
	svc     *Service
	users   *fakeUsers
	tokens  *fakeTokens
	mailer  *fakeMailer
	revoker *session.MemoryRevoker
	issuer  *token.Manager
}

func newFixture() *fixture {
	f := &fixture{
		users:   newFakeUsers(),
		tokens:  newFakeTokens(),
		mailer:  &fakeMailer{},
		revoker: session.NewMemoryRevoker(),
		issuer:  token.NewManager("auth-test-secret", time.Hour),
	}
	f.svc = NewService(Deps{
		Users:   f.users,
		Tokens:  f.tokens,
		Hasher:  NewBcryptHasher(bcrypt.MinCost),
		Issuer:  f.issuer,
		Revoker: f.revoker,
		Mailer:  f.mailer,
		BaseURL: "http://app.test",
		Log:     logging.Nop(),
	})
	return f
}

func (f *fixture) signupVerified(t *testing.T, addr, password string) *user.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.svc.Signup(ctx, SignupInput{Name: "Ada", Email: addr, Password: password})
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(ctx, linkToken(t, f.mailer.last(t))))
	return u
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x", 73)), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("12345678"))
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct-horse", hash)
	assert.True(t, h.Compare(hash, "correct-horse"))
	assert.False(t, h.Compare(hash, "wrong-horse"))
	assert.False(t, h.Compare("not-a-hash", "correct-horse"))
}

func TestGenerateToken(t *testing.T) {
	raw, hash, err := generateToken()
	require.NoError(t, err)

	assert.Len(t, raw, 64)
	assert.Equal(t, hashToken(raw), hash)
	assert.NotEqual(t, raw, hash)
}

func TestSignup_SendsVerificationLink(t *testing.T) {
	f := newFixture()

	u, err := f.svc.Signup(context.Background(), SignupInput{Name: "Ada", Email: "Ada@Example.com", Password: "correct-horse"})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "User", u.Role)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	msg := f.mailer.last(t)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.Text, "http://app.test/verify?token=")
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = f.svc.Signup(ctx, SignupInput{Name: "A", Email: "not-an-email", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, SignupInput{Name: "A", Email: "A@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, user.ErrAlreadyExists)
}

func TestSignup_CollegeID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse", CollegeID: strPtr("abc")})
	assert.ErrorIs(t, err, user.ErrUnknownCollege)
	assert.Empty(t, f.users.byID, "no account for a malformed college id")

	u, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse", CollegeID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, u.CollegeID)

	u, err = f.svc.Signup(ctx, SignupInput{Name: "B", Email: "b@example.com", Password: "correct-horse", CollegeID: strPtr(" e7eedc79-0707-4fe4-8734-526b7ef13a7b ")})
	require.NoError(t, err)
	require.NotNil(t, u.CollegeID)
	assert.Equal(t, "e7eedc79-0707-4fe4-8734-526b7ef13a7b", *u.CollegeID)
}

func strPtr(s string) *string { return &s }

func TestSignup_MailFailureStillCreatesAccount(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("smtp down")

	u, err := f.svc.Signup(context.Background(), SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	raw := linkToken(t, f.mailer.last(t))

	require.NoError(t, f.svc.VerifyEmail(ctx, raw))
	got, _ := f.users.GetByID(ctx, u.ID)
	assert.True(t, got.EmailVerified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, raw), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, ""), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "deadbeef"), ErrInvalidToken)
}

func TestVerifyEmail_ExpiredToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	f.tokens.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, linkToken(t, f.mailer.last(t))), ErrInvalidToken)
}

func TestResendVerification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	first := linkToken(t, f.mailer.last(t))

	require.NoError(t, f.svc.ResendVerification(ctx, "a@example.com"))
	second := linkToken(t, f.mailer.last(t))

	assert.NotEqual(t, first, second)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, first), ErrInvalidToken)
	require.NoError(t, f.svc.VerifyEmail(ctx, second))

	sent := len(f.mailer.sent)
	require.NoError(t, f.svc.ResendVerification(ctx, "a@example.com"))
	require.NoError(t, f.svc.ResendVerification(ctx, "nobody@example.com"))
	assert.Len(t, f.mailer.sent, sent)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "a@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, f.svc.VerifyEmail(ctx, linkToken(t, f.mailer.last(t))))

	_, err = f.svc.Login(ctx, "a@example.com", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := f.svc.Login(ctx, "A@example.com", "correct-horse")
	require.NoError(t, err)
	verified := f.issuer.Verify(res.Token)
	require.Equal(t, token.Valid, verified.Status)
	assert.Equal(t, res.User.ID, verified.Claims.UserID())
	assert.Equal(t, "User", verified.Claims.Role)
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signupVerified(t, "a@example.com", "correct-horse")
	res, err := f.svc.Login(ctx, "a@example.com", "correct-horse")
	require.NoError(t, err)
	claims := f.issuer.Verify(res.Token).Claims

	require.NoError(t, f.svc.Logout(ctx, claims))

	revoked, err := f.revoker.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.NoError(t, f.svc.Logout(ctx, nil))
}

func TestPasswordReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signupVerified(t, "a@example.com", "correct-horse")

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@example.com"))
	msg := f.mailer.last(t)
	assert.Contains(t, msg.Text, "http://app.test/reset-password?token=")
	raw := linkToken(t, msg)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, raw, "short"), ErrWeakPassword)
	require.NoError(t, f.svc.ResetPassword(ctx, raw, "new-correct-horse"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, raw, "another-horse"), ErrInvalidToken)

	_, err := f.svc.Login(ctx, "a@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "a@example.com", "new-correct-horse")
	assert.NoError(t, err)
}

func TestPasswordReset_EndsExistingSessions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.signupVerified(t, "a@example.com", "correct-horse")
	before, err := f.svc.Login(ctx, "a@example.com", "correct-horse")
	require.NoError(t, err)

	resetAt := time.Now().Add(time.Minute)
	f.svc.now = func() time.Time { return resetAt }
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@example.com"))
	require.NoError(t, f.svc.ResetPassword(ctx, linkToken(t, f.mailer.last(t)), "new-correct-horse"))

	cutoff, err := f.revoker.RevokedBefore(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, resetAt.Truncate(time.Second), cutoff)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: before.Token})
	w := httptest.NewRecorder()
	middleware.RequireAuth(f.issuer, f.revoker, logging.Nop())(next).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPasswordReset_VerificationTokenRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, linkToken(t, f.mailer.last(t)), "new-correct-horse")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.sent)
}

func doJSON(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandler_SignupStatusCodes(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, false, logging.Nop())

	w := doJSON(h.Signup, http.MethodPost, "/user/signup", `{"name":"A","email":"a@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(h.Signup, http.MethodPost, "/user/signup", `{"name":"A","email":"a@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(h.Signup, http.MethodPost, "/user/signup", `{"name":"A","email":"b@example.com","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(h.Signup, http.MethodPost, "/user/signup", `{"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(h.Signup, http.MethodPost, "/user/signup", `{"name":"C","email":"c@example.com","password":"correct-horse","collegeId":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "college not found")
}

func TestHandler_LoginSetsCookie(t *testing.T) {
	f := newFixture()
	f.signupVerified(t, "a@example.com", "correct-horse")
	h := NewHandler(f.svc, true, logging.Nop())

	w := doJSON(h.Login, http.MethodPost, "/user/login", `{"email":"a@example.com","password":"correct-horse"}`)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, middleware.CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, token.Valid, f.issuer.Verify(c.Value).Status)

	var env struct {
		Status int       `json:"status"`
		Data   loginData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "a@example.com", env.Data.User.Email)
}

func TestHandler_LoginFailures(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Signup(context.Background(), SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	h := NewHandler(f.svc, false, logging.Nop())

	w := doJSON(h.Login, http.MethodPost, "/user/login", `{"email":"a@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(h.Login, http.MethodPost, "/user/login", `{"email":"a@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = doJSON(h.Login, http.MethodPost, "/user/login", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.users.fails = errors.New("db down")
	w = doJSON(h.Login, http.MethodPost, "/user/login", `{"email":"a@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_LogoutClearsCookie(t *testing.T) {
	f := newFixture()
	f.signupVerified(t, "a@example.com", "correct-horse")
	res, err := f.svc.Login(context.Background(), "a@example.com", "correct-horse")
	require.NoError(t, err)
	claims := f.issuer.Verify(res.Token).Claims
	h := NewHandler(f.svc, false, logging.Nop())

	req := httptest.NewRequest(http.MethodPost, "/user/logout", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), claims))
	w := httptest.NewRecorder()
	h.Logout(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)

	revoked, _ := f.revoker.IsRevoked(context.Background(), claims.ID)
	assert.True(t, revoked)
}

func TestHandler_VerifyAndResend(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Signup(context.Background(), SignupInput{Name: "A", Email: "a@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	raw := linkToken(t, f.mailer.last(t))
	h := NewHandler(f.svc, false, logging.Nop())

	w := doJSON(h.ResendEmail, http.MethodGet, "/resend-email", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(h.ResendEmail, http.MethodGet, "/resend-email?email=nobody@example.com", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(h.VerifyEmail, http.MethodGet, "/verify?token=bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(h.VerifyEmail, http.MethodGet, "/verify?token="+raw, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ForgotAndReset(t *testing.T) {
	f := newFixture()
	f.signupVerified(t, "a@example.com", "correct-horse")
	h := NewHandler(f.svc, false, logging.Nop())

	w := doJSON(h.ForgotPassword, http.MethodPost, "/forgot-password", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(h.ForgotPassword, http.MethodPost, "/forgot-password", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(h.ForgotPassword, http.MethodPost, "/forgot-password", `{"email":"a@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	raw := linkToken(t, f.mailer.last(t))

	w = doJSON(h.ResetPassword, http.MethodPost, "/reset-password", `{"token":"bad","password":"new-correct-horse"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(h.ResetPassword, http.MethodPost, "/reset-password", `{"token":"`+raw+`","password":"new-correct-horse"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
