// Package storage provides per-job temporary workspaces on local disk and an
// optional S3 archive for finished artifacts. Each workspace is a private
// directory, so concurrent jobs never contend on the same path, and releasing
// it removes every artifact the job produced.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrArchiveNotConfigured is returned when archive operations are attempted
// without S3 configuration.
var ErrArchiveNotConfigured = errors.New("artifact archive is not configured")

// Storage is the port for job file handling: scoped temp workspaces plus an
// optional durable archive for delivered artifacts.
type Storage interface {
	// NewWorkspace creates an isolated temp directory for one job. The id
	// must be unique per job; it namespaces the directory.
	NewWorkspace(id string) (*Workspace, error)

	// Archive uploads a finished artifact under the given key and returns
	// its URL. Returns ErrArchiveNotConfigured when no archive backend is
	// configured.
	Archive(ctx context.Context, key string, data io.Reader) (url string, err error)
}
