package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/banshee-data/gtdb/internal/fsutil"
)

// Options selects and configures a sink.
type Options struct {
	// URL is empty for the local filesystem, or one of
	// s3://bucket/prefix and minio://bucket/prefix.
	URL string

	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// PutsPerSecond throttles uploads when positive.
	PutsPerSecond float64

	FS fsutil.FileSystem
}

// Remote reports whether opts selects an object store.
func (o Options) Remote() bool {
	return o.URL != ""
}

// Open returns the sink for the database directory dbDir. Remote sinks key
// objects as <prefix>/<base(dbDir)>/<name>.
func Open(ctx context.Context, opts Options, dbDir string) (Sink, error) {
	var sink Sink
	if !opts.Remote() {
		sink = NewLocal(opts.FS, dbDir)
	} else {
		u, err := url.Parse(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse blob store url: %w", err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("blob store url %q has no bucket", opts.URL)
		}
		prefix := path.Join(strings.TrimPrefix(u.Path, "/"), filepath.Base(dbDir))

		switch u.Scheme {
		case "s3":
			sink, err = openS3(ctx, opts, u.Host, prefix)
		case "minio":
			sink, err = openMinIO(opts, u.Host, prefix)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		}
		if err != nil {
			return nil, err
		}
	}

	if opts.PutsPerSecond > 0 {
		sink = NewThrottled(sink, opts.PutsPerSecond, int(opts.PutsPerSecond)+1)
	}
	return sink, nil
}

func openS3(ctx context.Context, opts Options, bucket, prefix string) (Sink, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3(client, bucket, prefix), nil
}

func openMinIO(opts Options, bucket, prefix string) (Sink, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio blob store requires an endpoint")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewMinIO(client, bucket, prefix), nil
}
