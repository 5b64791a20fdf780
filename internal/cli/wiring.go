package cli

import (
	"context"
	"fmt"

	"github.com/campusreg/service/internal/config"
	"github.com/campusreg/service/internal/email"
	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/session"
	"github.com/campusreg/service/internal/storage"
)

// newBlobStore builds the storage backend selected by STORAGE_DRIVER.
func newBlobStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageAzure:
		return storage.NewAzureStore(ctx, cfg.AzureConnectionString, cfg.AzureContainer)
	case config.StorageMinio:
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			UseSSL:     cfg.StorageUseSSL,
			PublicBase: cfg.StoragePublicBase,
		})
	case config.StorageMemory:
		return storage.NewMemoryStore(cfg.AppBaseURL + "/blobs"), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newMailer builds the email sender selected by EMAIL_PROVIDER.
func newMailer(cfg *config.Config, log logging.Logger) email.Sender {
	if cfg.EmailProvider == "resend" {
		return email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	}
	return email.NewLogSender(log)
}

// newRevoker keeps logout revocations in Redis when REDIS_URL is set, and in
// process memory otherwise. The returned close func is never nil.
func newRevoker(ctx context.Context, cfg *config.Config) (session.Revoker, func() error, error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryRevoker(), func() error { return nil }, nil
	}
	client, err := session.Connect(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return session.NewRedisRevoker(client), client.Close, nil
}
