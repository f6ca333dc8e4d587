package sqlstore

import (
	"context"
	"strings"
	"time"
)

// isBusyErr reports whether err looks like a SQLite busy/locked error.
// modernc.org/sqlite surfaces these as plain errors carrying the SQLite
// error string rather than a typed sentinel, so matching text is the
// pragmatic option here.
func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withLockRetry retries fn with jittered exponential backoff while it
// keeps failing with a busy/locked error, adapted from the teacher's
// backoffCounter (backoff.go).
func withLockRetry(ctx context.Context, fn func() error) error {
	bc := backoffCounter{defaultLockBackoff}
	var attempt uint32
	for {
		err := fn()
		if err == nil || !isBusyErr(err) {
			return err
		}
		attempt++
		wait, ok := bc.next(attempt)
		if !ok {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
