package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Provider names used in item documents and configuration.
const (
	ProviderS3Primary   = "s3-primary"
	ProviderS3Secondary = "s3-secondary"
	ProviderB2Native    = "b2-native"
)

// ErrPresignUnsupported is returned by backends whose native API has no
// presigned upload. The manager answers with an application upload endpoint
// instead and the controller streams through Upload.
var ErrPresignUnsupported = errors.New("backend does not support presigned uploads")

// Backend is one concrete object-storage service. Implementations must be
// safe for concurrent use.
type Backend interface {
	Name() string
	Bucket() string

	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration, metadata map[string]string) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Upload streams object bytes server-side. Used for backends without
	// presigned uploads and as the destination half of cross-provider copy.
	Upload(ctx context.Context, key, contentType string, r io.Reader) error
	SupportsPresignedUpload() bool

	// Probe is a cheap bounded reachability check (a one-item list).
	Probe(ctx context.Context) error
}
