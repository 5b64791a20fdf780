package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusreg/service/internal/auth"
	"github.com/campusreg/service/internal/college"
	"github.com/campusreg/service/internal/db"
	"github.com/campusreg/service/internal/event"
	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/payment"
	"github.com/campusreg/service/internal/server"
	"github.com/campusreg/service/internal/storage"
	"github.com/campusreg/service/internal/token"
	"github.com/campusreg/service/internal/user"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting campusreg",
		logging.String("version", Version),
		logging.String("env", cfg.AppEnv),
		logging.String("storage_driver", cfg.StorageDriver),
		logging.String("email_provider", cfg.EmailProvider),
	)

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if !skipMigrations {
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}

	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}
	blobs := storage.NewAdapter(blobStore, storage.WithTimeout(cfg.StorageTimeout))

	revoker, closeRevoker, err := newRevoker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("session store init failed: %w", err)
	}
	defer closeRevoker() //nolint:errcheck

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	// Wire dependencies: repository → service → handler
	userSvc := user.NewService(user.NewRepository(pool))
	authSvc := auth.NewService(auth.Deps{
		Users:   userSvc,
		Tokens:  auth.NewRepository(pool),
		Hasher:  auth.NewBcryptHasher(0),
		Issuer:  tokens,
		Revoker: revoker,
		Mailer:  newMailer(cfg, log),
		BaseURL: cfg.AppBaseURL,
		Log:     log.With(logging.String("component", "auth")),
	})
	collegeSvc := college.NewService(college.NewRepository(pool))
	eventSvc := event.NewService(event.NewRepository(pool))
	paymentSvc := payment.NewService(payment.NewRepository(pool), blobs, eventSvc, cfg.PaymentFolder,
		log.With(logging.String("component", "payment")))

	router := server.NewRouter(server.Deps{
		Auth:           auth.NewHandler(authSvc, cfg.CookieSecure, log),
		Users:          user.NewHandler(userSvc, log),
		Colleges:       college.NewHandler(collegeSvc, log),
		Events:         event.NewHandler(eventSvc, log),
		Payments:       payment.NewHandler(paymentSvc, log),
		Verifier:       tokens,
		Revoker:        revoker,
		Limiter:        middleware.NewRateLimiter(cfg.AuthRateLimit),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.StorageTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logging.String("addr", srv.Addr))
		log.Info("swagger UI available", logging.String("url", "http://localhost:"+cfg.Port+"/swagger/"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
