package blobstore

import (
	"context"
	"path/filepath"

	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/security"
)

// Local implements Sink on a filesystem directory.
type Local struct {
	root string
	fs   fsutil.FileSystem
}

// NewLocal creates a sink rooted at root. A nil fsys uses the OS filesystem.
func NewLocal(fsys fsutil.FileSystem, root string) *Local {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Local{root: root, fs: fsys}
}

// MkdirAll creates root/dir.
func (s *Local) MkdirAll(_ context.Context, dir string) error {
	if err := security.ValidateName(dir); err != nil {
		return err
	}
	return s.fs.MkdirAll(filepath.Join(s.root, dir), 0o755)
}

// Put writes root/name.
func (s *Local) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := security.ValidateName(name); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.root, name), data, 0o644)
}

// Location returns root/name.
func (s *Local) Location(name string) string {
	return filepath.Join(s.root, name)
}
