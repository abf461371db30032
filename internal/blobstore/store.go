// Package blobstore provides the sinks extracted object points are written to.
//
// A sink is rooted at the ground-truth database directory: names passed to
// MkdirAll and Put are relative ("car/0001_car_3.bin"). The local sink writes
// files; the S3 and MinIO sinks upload objects under a key prefix and treat
// directories as implicit.
package blobstore

import (
	"context"
	"errors"
)

// ErrUnsupportedScheme is returned by Open for unknown URL schemes.
var ErrUnsupportedScheme = errors.New("unsupported blob store scheme")

// Sink stores immutable point blobs.
type Sink interface {
	// MkdirAll prepares the directory dir. Existing directories are not an error.
	MkdirAll(ctx context.Context, dir string) error
	// Put stores data under name, replacing any previous blob.
	Put(ctx context.Context, name string, data []byte) error
	// Location returns the absolute location of name (file path or object URL).
	Location(name string) string
}
