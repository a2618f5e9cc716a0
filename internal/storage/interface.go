package storage

import (
	"context"
	"io"
)

// ObjectStorage is the archive backend. The archive action uploads a copy of
// each archived file before moving it locally; everything else is optional
// tooling around that.
type ObjectStorage interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL for accessing an object.
	GetURL(key string) string

	// Delete removes an object from storage.
	Delete(ctx context.Context, key string) error
}
