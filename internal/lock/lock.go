// Package lock implements the dataset-lock wait loop: the registration
// stage must wait for the dataset lock to clear before registering newly
// uploaded files, or races with server-side ingest produce sporadic
// failures.
package lock

import (
	"context"
	"time"

	"github.com/gdcc/dvuploader-go/internal/dverrors"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// Waiter polls a dataset's lock state until it clears or the timeout
// elapses.
type Waiter struct {
	Client *repo.Client
}

// WaitForUnlock polls datasetID's locks at pollInterval, succeeding as
// soon as the locks array is empty. It fails with a LockTimeoutError if
// the dataset does not unlock within timeout, and propagates any HTTP
// failure verbatim.
func (w *Waiter) WaitForUnlock(ctx context.Context, persistentID, datasetID string, pollInterval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		locks, err := w.Client.FetchLocks(ctx, datasetID)
		if err != nil {
			return err
		}
		if len(locks) == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return &dverrors.LockTimeoutError{PersistentID: persistentID}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
