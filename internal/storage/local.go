package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements Storage using local disk only. Workspaces live
// under a configurable base directory; Archive is not supported unless
// wrapped by S3Storage.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new LocalStorage instance rooted at baseDir.
// If baseDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "gifbot")
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &LocalStorage{baseDir: baseDir}, nil
}

// BaseDir returns the directory under which workspaces are created.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// NewWorkspace creates a job-private directory named after the id.
func (s *LocalStorage) NewWorkspace(id string) (*Workspace, error) {
	if id == "" {
		return nil, fmt.Errorf("workspace id must not be empty")
	}
	dir := filepath.Join(s.baseDir, "job-"+id)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Archive is not supported by LocalStorage and returns ErrArchiveNotConfigured.
func (s *LocalStorage) Archive(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrArchiveNotConfigured
}

// Workspace is one job's private temp directory. All artifacts of the job
// (downloaded source, palettes, intermediate and final outputs) live inside
// it, so a single Release removes them all.
type Workspace struct {
	dir string
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the absolute path for a named artifact inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Create creates a named artifact file inside the workspace.
func (w *Workspace) Create(name string) (*os.File, error) {
	f, err := os.Create(w.Path(name)) // #nosec G304 - path is inside the job workspace
	if err != nil {
		return nil, fmt.Errorf("create workspace file: %w", err)
	}
	return f, nil
}

// Release deletes the workspace directory and everything in it. Safe to call
// more than once; a second call is a no-op.
func (w *Workspace) Release() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}
