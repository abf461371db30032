package blobstore

import (
	"bytes"
	"context"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/banshee-data/gtdb/internal/security"
)

// MinIO implements Sink on an S3-compatible MinIO endpoint.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO creates a MinIO sink. prefix is prepended to every key.
func NewMinIO(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *MinIO) key(name string) string {
	return path.Join(s.prefix, name)
}

// MkdirAll is a no-op; object stores have no directories.
func (s *MinIO) MkdirAll(context.Context, string) error {
	return nil
}

// Put uploads data as one object.
func (s *MinIO) Put(ctx context.Context, name string, data []byte) error {
	if err := security.ValidateName(name); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

// Location returns the s3:// URL of name.
func (s *MinIO) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}
