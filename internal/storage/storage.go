// Package storage persists binary payloads (payment screenshots) in a cloud
// object store and hands back public URLs.
//
// Backends are swapped by changing the concrete Store injected at startup:
// Azure Blob Storage, any S3-compatible service through MinIO, or an
// in-memory store for development.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrInvalidContentType is returned when a MIME type is not of the form type/subtype.
	ErrInvalidContentType = errors.New("content type must be of the form type/subtype")
	// ErrForeignURL is returned when a URL does not point into the configured container.
	ErrForeignURL = errors.New("url does not belong to this container")
)

// Store is the object-store backend used by Adapter.
type Store interface {
	// Put writes data under key, tagging it with contentType.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Remove deletes the object at key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// BaseURL is the public URL of the container; object URLs are BaseURL + "/" + key.
	BaseURL() string
}
