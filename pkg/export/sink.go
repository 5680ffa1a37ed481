package export

import (
	"context"
	"os"
	"path/filepath"
)

// Sink stores exported files under a name relative to the export root.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// DirSink writes exports into a local directory.
type DirSink struct {
	Root string
}

// NewDirSink creates a sink rooted at dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Root: dir}
}

// Write stores data at Root/name, creating parent directories.
func (s *DirSink) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
