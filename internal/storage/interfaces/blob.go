package interfaces

import (
	"context"
	"io"
	"time"
)

// BlobStore stores raw dataset objects and profiler report artifacts.
type BlobStore interface {
	// Connect establishes the backend connection
	Connect(ctx context.Context) error

	// Close releases the backend connection
	Close() error

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Put stores an object under the given key
	Put(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get retrieves an object; the caller must close the reader
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object
	Delete(ctx context.Context, key string) error

	// PresignedURL returns a time-limited download URL for an object
	PresignedURL(key string, expiry time.Duration) (string, error)
}
