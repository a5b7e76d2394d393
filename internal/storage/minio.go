package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// Objects are kept flat in a single bucket, keyed by their stored name.
type MinioStorage struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, logger zerolog.Logger) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		logger.Info().Str("bucket", bucket).Msg("storage: created bucket")
	}

	return &MinioStorage{client: client, bucket: bucket, log: logger}, nil
}

// Create streams r into the bucket under name. The existence check and the
// put are two calls, so unlike LocalStorage this is not atomic across writers.
func (s *MinioStorage) Create(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("%q: %w", name, err)
	}

	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return 0, fmt.Errorf("%q: %w", name, ErrExists)
	case !isNoSuchKey(err):
		return 0, fmt.Errorf("stat object %q: %w", name, err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, name, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		if rmErr := s.client.RemoveObject(context.WithoutCancel(ctx), s.bucket, name, minio.RemoveObjectOptions{}); rmErr != nil && !isNoSuchKey(rmErr) {
			s.log.Warn().Err(rmErr).Str("object", name).Msg("storage: remove partial object")
		}
		return 0, fmt.Errorf("put object %q: %w", name, err)
	}
	return info.Size, nil
}

// Open returns a seekable reader over the object stored under name.
func (s *MinioStorage) Open(ctx context.Context, name string) (*Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", name, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("stat object %q: %w", name, err)
	}

	return &Object{
		Name:        name,
		Size:        info.Size,
		ModTime:     info.LastModified,
		ContentType: info.ContentType,
		Body:        obj,
	}, nil
}

// Remove deletes the object at name from the bucket.
func (s *MinioStorage) Remove(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}

// Ping checks that the bucket is reachable.
func (s *MinioStorage) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
