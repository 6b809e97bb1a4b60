// Package nativeupload implements the native-upload protocol driver:
// form-multipart POST per file or per package, with exponential backoff
// retry, rate-limit pauses, and zip-limit error classification, followed
// by post-upload metadata reconciliation.
package nativeupload

import (
	"context"
	"os"
	"time"

	"github.com/gdcc/dvuploader-go/internal/config"
	"github.com/gdcc/dvuploader-go/internal/dvlog"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// Driver drives package uploads and metadata reconciliation for one
// dataset.
type Driver struct {
	Client       *repo.Client
	PersistentID string
	Retry        config.RetryPolicy
	Logger       *dvlog.Logger

	// TempDir holds archives created for zipped packages. Removed by the
	// caller when the batch completes.
	TempDir string
}

// New creates a native-upload driver. If tempDir is empty, a fresh
// temporary directory is created; a non-empty tempDir is used as given.
func New(client *repo.Client, persistentID string, retry config.RetryPolicy, tempDir string) (*Driver, error) {
	if tempDir == "" {
		dir, err := os.MkdirTemp("", "dvuploader-*")
		if err != nil {
			return nil, err
		}
		tempDir = dir
	}
	return &Driver{
		Client:       client,
		PersistentID: persistentID,
		Retry:        retry,
		Logger:       dvlog.Default,
		TempDir:      tempDir,
	}, nil
}

// Close removes the driver's scoped temporary archive directory.
func (d *Driver) Close() error {
	return os.RemoveAll(d.TempDir)
}

// sleep respects context cancellation while waiting out a rate-limit pause.
func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
