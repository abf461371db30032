package blobstore

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/banshee-data/gtdb/internal/security"
)

// S3 implements Sink on an S3 bucket.
type S3 struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3 creates an S3 sink. prefix is prepended to every key.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3) key(name string) string {
	return path.Join(s.prefix, name)
}

// MkdirAll is a no-op; S3 has no directories.
func (s *S3) MkdirAll(context.Context, string) error {
	return nil
}

// Put uploads data as one object.
func (s *S3) Put(ctx context.Context, name string, data []byte) error {
	if err := security.ValidateName(name); err != nil {
		return err
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	return err
}

// Location returns the s3:// URL of name.
func (s *S3) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}
