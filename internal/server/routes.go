// Package server assembles the HTTP router and its middleware chain.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/campusreg/service/internal/logging"
	appMiddleware "github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/session"
)

// AuthHandler serves account endpoints. *auth.Handler implements it.
type AuthHandler interface {
	Signup(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	ResendEmail(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

// UserHandler serves profile endpoints. *user.Handler implements it.
type UserHandler interface {
	GetProfile(w http.ResponseWriter, r *http.Request)
}

// CollegeHandler serves college endpoints. *college.Handler implements it.
type CollegeHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// EventHandler serves event endpoints. *event.Handler implements it.
type EventHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	MyEvents(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	RegisteredEvents(w http.ResponseWriter, r *http.Request)
}

// PaymentHandler serves payment endpoints. *payment.Handler implements it.
type PaymentHandler interface {
	Upload(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
}

// Deps wires handlers and auth collaborators into the router.
type Deps struct {
	Auth     AuthHandler
	Users    UserHandler
	Colleges CollegeHandler
	Events   EventHandler
	Payments PaymentHandler

	Verifier appMiddleware.Verifier
	Revoker  session.Revoker
	Limiter  *appMiddleware.RateLimiter // applied to credential endpoints; nil disables

	AllowedOrigins []string
	Log            logging.Logger
}

// NewRouter builds the application router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(d.Log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at /swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	requireAuth := appMiddleware.RequireAuth(d.Verifier, d.Revoker, d.Log)
	paymentAdmin := appMiddleware.RequireRole(appMiddleware.RolePaymentAdmin)
	limited := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Middleware(h)
	}

	// Accounts
	r.Post("/user/signup", d.Auth.Signup)
	r.Method(http.MethodPost, "/user/login", limited(d.Auth.Login))
	r.With(requireAuth).Get("/user/profile", d.Users.GetProfile)
	r.With(requireAuth).Post("/user/logout", d.Auth.Logout)
	r.Get("/verify", d.Auth.VerifyEmail)
	r.Method(http.MethodGet, "/resend-email", limited(d.Auth.ResendEmail))
	r.Method(http.MethodPost, "/forgot-password", limited(d.Auth.ForgotPassword))
	r.Post("/reset-password", d.Auth.ResetPassword)

	// Colleges
	r.Post("/college/create", d.Colleges.Create)
	r.Get("/college/all", d.Colleges.List)
	r.Put("/college/update/{id}", d.Colleges.Update)
	r.Delete("/college/delete/{id}", d.Colleges.Delete)

	// Events
	r.With(requireAuth).Post("/event/create", d.Events.Create)
	r.Get("/event/all", d.Events.List)
	r.With(requireAuth).Put("/event/update/{eventId}", d.Events.Update)
	r.With(requireAuth).Get("/event/my-events", d.Events.MyEvents)
	r.With(requireAuth).Post("/event/register/{eventId}", d.Events.Register)
	r.With(requireAuth).Get("/event/registered-events", d.Events.RegisteredEvents)

	// Payments
	r.With(requireAuth).Post("/Upload-Payment-Info", d.Payments.Upload)
	r.With(requireAuth, paymentAdmin).Get("/View-All-Payments", d.Payments.List)
	r.With(requireAuth, paymentAdmin).Put("/Update-Payment-Status/{paymentId}", d.Payments.UpdateStatus)

	return r
}
