package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Adapter uploads payloads under generated keys and deletes them again by
// public URL. It is safe for concurrent use if the Store is.
type Adapter struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout bounds every backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithClock replaces the time source used for flat blob names.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithIDGenerator replaces the random id source used for blob names.
func WithIDGenerator(newID func() string) Option {
	return func(a *Adapter) { a.newID = newID }
}

// NewAdapter wraps a backend Store.
func NewAdapter(store Store, opts ...Option) *Adapter {
	a := &Adapter{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Upload stores data and returns its public URL. The file extension is the
// MIME subtype. An empty folder selects flat naming. Backend errors are
// returned as-is (wrapped); nothing is retried.
func (a *Adapter) Upload(ctx context.Context, data []byte, mimeType, folder string) (string, error) {
	ext, err := ExtensionFor(mimeType)
	if err != nil {
		return "", err
	}
	key := NewBlobKey(folder, ext, a.now(), a.newID())

	ctx, cancel := a.bound(ctx)
	defer cancel()

	if err := a.store.Put(ctx, key.String(), data, mimeType); err != nil {
		return "", fmt.Errorf("upload blob %q: %w", key, err)
	}
	return key.URL(a.store.BaseURL()), nil
}

// Delete removes the object behind a URL returned by Upload. An empty URL is
// a no-op, and deleting an object that no longer exists succeeds.
func (a *Adapter) Delete(ctx context.Context, rawURL string) error {
	if rawURL == "" {
		return nil
	}
	key, err := ParseBlobURL(rawURL, a.store.BaseURL())
	if err != nil {
		return err
	}

	ctx, cancel := a.bound(ctx)
	defer cancel()

	if err := a.store.Remove(ctx, key.String()); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

func (a *Adapter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
