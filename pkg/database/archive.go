package database

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

// ArchiveStore writes report documents to an S3-compatible bucket.
type ArchiveStore struct {
	client *minio.Client
	bucket string
}

// NewArchiveStore connects to the object store and makes sure the bucket exists.
// Returns nil if no endpoint is configured.
func NewArchiveStore(ctx context.Context, cfg *config.ArchiveConfig) (*ArchiveStore, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check archive bucket: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create archive bucket: %w", err)
		}
	}

	return &ArchiveStore{client: cli, bucket: cfg.Bucket}, nil
}

// PutJSON stores data under key and returns the object location.
func (s *ArchiveStore) PutJSON(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s", s.bucket, key), nil
}

// Bucket returns the target bucket name.
func (s *ArchiveStore) Bucket() string {
	return s.bucket
}
