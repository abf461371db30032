package blobstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/security"
)

type countingSink struct {
	mu   sync.Mutex
	puts []string
}

func (c *countingSink) MkdirAll(context.Context, string) error { return nil }

func (c *countingSink) Put(_ context.Context, name string, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, name)
	return nil
}

func (c *countingSink) Location(name string) string { return "mem://" + name }

func TestLocal_PutAndLocation(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	s := NewLocal(fsys, "/db/gt_database_10sweeps_withvelo")
	ctx := context.Background()

	require.NoError(t, s.MkdirAll(ctx, "car"))
	require.NoError(t, s.Put(ctx, "car/0_car_0.bin", []byte{1, 2, 3, 4}))

	data, err := fsys.ReadFile("/db/gt_database_10sweeps_withvelo/car/0_car_0.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
	assert.True(t, fsutil.Exists(fsys, "/db/gt_database_10sweeps_withvelo/car"))
	assert.Equal(t, "/db/gt_database_10sweeps_withvelo/car/0_car_0.bin", s.Location("car/0_car_0.bin"))
}

func TestLocal_PutCancelled(t *testing.T) {
	s := NewLocal(fsutil.NewMemoryFileSystem(), "/db")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "x.bin", nil), context.Canceled)
}

func TestLocal_RejectsEscapingNames(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	s := NewLocal(fsys, "/db/gt")
	ctx := context.Background()

	assert.ErrorIs(t, s.MkdirAll(ctx, "../elsewhere"), security.ErrUnsafePath)
	assert.ErrorIs(t, s.Put(ctx, "../../etc/x.bin", []byte{0}), security.ErrUnsafePath)
	assert.ErrorIs(t, s.Put(ctx, "/abs.bin", []byte{0}), security.ErrUnsafePath)
	assert.Empty(t, fsys.Files("/"))
}

func TestLocal_PutFailure(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	boom := errors.New("disk full")
	fsys.FailWrites("/db/car", boom)
	s := NewLocal(fsys, "/db")

	err := s.Put(context.Background(), "car/1.bin", []byte{0})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, s.Put(context.Background(), "truck/1.bin", []byte{0}))
}

func TestThrottled_DelegatesPuts(t *testing.T) {
	inner := &countingSink{}
	s := NewThrottled(inner, 1000, 10)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, name, nil))
	}
	assert.Equal(t, []string{"a", "b", "c"}, inner.puts)
	assert.Equal(t, "mem://a", s.Location("a"))
}

func TestThrottled_WaitHonoursContext(t *testing.T) {
	inner := &countingSink{}
	s := NewThrottled(inner, 0.001, 1)

	require.NoError(t, s.Put(context.Background(), "first", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Put(ctx, "second", nil))
	assert.Equal(t, []string{"first"}, inner.puts)
}

func TestOpen_Local(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	s, err := Open(context.Background(), Options{FS: fsys}, "/data/gt_database_lidar")
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)
	assert.Equal(t, "/data/gt_database_lidar/car/a.bin", s.Location("car/a.bin"))
}

func TestOpen_LocalThrottled(t *testing.T) {
	s, err := Open(context.Background(), Options{FS: fsutil.NewMemoryFileSystem(), PutsPerSecond: 50}, "/db")
	require.NoError(t, err)
	assert.IsType(t, &Throttled{}, s)
}

func TestOpen_S3Location(t *testing.T) {
	s, err := Open(context.Background(), Options{
		URL:       "s3://training/datasets/nusc",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	}, "/data/gt_database_10sweeps_withvelo")
	require.NoError(t, err)
	assert.Equal(t, "s3://training/datasets/nusc/gt_database_10sweeps_withvelo/car/0_car_1.bin",
		s.Location("car/0_car_1.bin"))
}

func TestOpen_MinIO(t *testing.T) {
	_, err := Open(context.Background(), Options{URL: "minio://gt"}, "/db")
	assert.Error(t, err, "endpoint is required")

	s, err := Open(context.Background(), Options{
		URL:       "minio://gt/run",
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	}, "/db/gt_database_lidar")
	require.NoError(t, err)
	assert.IsType(t, &MinIO{}, s)
	assert.Equal(t, "s3://gt/run/gt_database_lidar/tunnel/3.bin", s.Location("tunnel/3.bin"))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), Options{URL: "gcs://bucket/x"}, "/db")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = Open(context.Background(), Options{URL: "s3:///nobucket"}, "/db")
	assert.Error(t, err)
}
