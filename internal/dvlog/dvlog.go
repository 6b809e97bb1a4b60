// Package dvlog is the uploader's ambient logger: sparse diagnostic lines
// for skip/retry/transfer events, with no per-byte chatter.
package dvlog

import (
	"log"
	"os"
	"time"

	"github.com/gdcc/dvuploader-go/bytefmt"
)

// Logger emits sparse diagnostic lines for skip/retry/reconcile events.
type Logger struct {
	*log.Logger
}

// Default is the package-level logger used when callers don't supply
// their own.
var Default = &Logger{Logger: log.New(os.Stderr, "", log.LstdFlags)}

// Skip logs that a descriptor was skipped during reconciliation.
func (l *Logger) Skip(path, reason string) {
	l.Printf("skip %s: %s", path, reason)
}

// Retry logs a retry attempt with its backoff wait.
func (l *Logger) Retry(what string, attempt int, wait string, err error) {
	l.Printf("retry %s attempt=%d wait=%s err=%v", what, attempt, wait, err)
}

// Transferred logs a completed upload's size and throughput.
func (l *Logger) Transferred(what string, n int64, elapsed time.Duration) {
	l.Printf("uploaded %s: %s (%s)", what, bytefmt.FormatBytes(n), bytefmt.FormatRate(n, elapsed))
}
