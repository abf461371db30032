package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_WriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "index.json")

	require.NoError(t, WriteFileAtomic(OSFileSystem{}, target, []byte(`{"a":1}`), 0o644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should have been renamed away")
}

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}

	assert.True(t, Exists(fsys, "filesystem.go"))
	assert.False(t, Exists(fsys, "nonexistent_file_xyz.go"))
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/db/car/1_car_0.bin", []byte("hello"), 0o644))

	data, err := mfs.ReadFile("/db/car/1_car_0.bin")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = mfs.ReadFile("/db/missing.bin")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_MkdirAllCreatesParents(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.MkdirAll("/data/gt_database/car", 0o755))
	// Idempotent.
	require.NoError(t, mfs.MkdirAll("/data/gt_database/car", 0o755))

	for _, dir := range []string{"/data", "/data/gt_database", "/data/gt_database/car"} {
		info, err := mfs.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestMemoryFileSystem_FailWrites(t *testing.T) {
	mfs := NewMemoryFileSystem()
	boom := errors.New("disk full")
	mfs.FailWrites("/db/car", boom)

	err := mfs.WriteFile("/db/car/1_car_0.bin", nil, 0o644)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Sibling prefixes are not affected.
	require.NoError(t, mfs.WriteFile("/db/cart/1_cart_0.bin", nil, 0o644))
}

func TestMemoryFileSystem_AtomicWriteFailureLeavesNothing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.FailWrites("/out", errors.New("read-only"))

	err := WriteFileAtomic(mfs, "/out/index.json", []byte("{}"), 0o644)
	require.Error(t, err)
	assert.False(t, Exists(mfs, "/out/index.json"))
	assert.Empty(t, mfs.Files("/out"))
}

func TestMemoryFileSystem_Files(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/db/b.bin", nil, 0o644))
	require.NoError(t, mfs.WriteFile("/db/a.bin", nil, 0o644))
	require.NoError(t, mfs.WriteFile("/other/c.bin", nil, 0o644))

	assert.Equal(t, []string{"/db/a.bin", "/db/b.bin"}, mfs.Files("/db"))
}
