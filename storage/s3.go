package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config describes one S3-protocol-compatible provider. Provider quirks
// (max signed-URL lifetime, path-style addressing) are configuration, not
// separate client implementations.
type S3Config struct {
	Name            string
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MaxPresignTTL   time.Duration
}

// S3Backend is the single generic client behind every S3-compatible provider.
type S3Backend struct {
	cfg     S3Config
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	if cfg.Name == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backend requires a name and bucket")
	}
	if cfg.MaxPresignTTL <= 0 {
		cfg.MaxPresignTTL = 7 * 24 * time.Hour
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	client := s3.New(opts)

	return &S3Backend{
		cfg:     cfg,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

func (b *S3Backend) Name() string   { return b.cfg.Name }
func (b *S3Backend) Bucket() string { return b.cfg.Bucket }

func (b *S3Backend) SupportsPresignedUpload() bool { return true }

func (b *S3Backend) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration, metadata map[string]string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	req, err := b.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(b.clampTTL(ttl)))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return req.URL, nil
}

func (b *S3Backend) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.clampTTL(ttl)))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return req.URL, nil
}

func (b *S3Backend) DeleteObject(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (b *S3Backend) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return true, nil
}

func (b *S3Backend) Upload(ctx context.Context, key, contentType string, r io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (b *S3Backend) Probe(ctx context.Context) error {
	_, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.cfg.Bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("probe of %s failed: %w", b.cfg.Name, err)
	}
	return nil
}

func (b *S3Backend) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > b.cfg.MaxPresignTTL {
		return b.cfg.MaxPresignTTL
	}
	return ttl
}
