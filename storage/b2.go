package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kurin/blazer/b2"
)

// B2Backend is the platform-native Backblaze B2 store. The native API signs
// download auth URLs but has no presigned uploads, so uploads stream through
// the server (Upload) instead.
type B2Backend struct {
	client     *b2.Client
	bucket     *b2.Bucket
	bucketName string
}

func NewB2Backend(ctx context.Context, keyID, applicationKey, bucketName string) (*B2Backend, error) {
	client, err := b2.NewClient(ctx, keyID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create B2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &B2Backend{
		client:     client,
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

func (b *B2Backend) Name() string   { return ProviderB2Native }
func (b *B2Backend) Bucket() string { return b.bucketName }

func (b *B2Backend) SupportsPresignedUpload() bool { return false }

func (b *B2Backend) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration, metadata map[string]string) (string, error) {
	return "", ErrPresignUnsupported
}

func (b *B2Backend) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	obj := b.bucket.Object(key)
	urlObj, err := obj.AuthURL(ctx, ttl, "GET")
	if err != nil {
		return "", fmt.Errorf("failed to sign B2 download URL for %s: %w", key, err)
	}
	return urlObj.String(), nil
}

func (b *B2Backend) DeleteObject(ctx context.Context, key string) error {
	if err := b.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s from B2: %w", key, err)
	}
	return nil
}

func (b *B2Backend) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := b.bucket.Object(key).Attrs(ctx)
	if err != nil {
		if b2.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s in B2: %w", key, err)
	}
	return true, nil
}

func (b *B2Backend) Upload(ctx context.Context, key, contentType string, r io.Reader) error {
	obj := b.bucket.Object(key)
	writer := obj.NewWriter(ctx)

	if _, err := io.Copy(writer, r); err != nil {
		writer.Close()
		return fmt.Errorf("failed to upload %s to B2: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close B2 writer for %s: %w", key, err)
	}
	return nil
}

func (b *B2Backend) Probe(ctx context.Context) error {
	iter := b.bucket.List(ctx, b2.ListPageSize(1))
	iter.Next()
	if err := iter.Err(); err != nil {
		return fmt.Errorf("probe of B2 bucket %s failed: %w", b.bucketName, err)
	}
	return nil
}
