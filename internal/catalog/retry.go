package catalog

import (
	"strings"
	"time"

	"github.com/banshee-data/gtdb/internal/timeutil"
)

const (
	maxBusyAttempts = 5
	busyBaseDelay   = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a lock contention error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn until it succeeds, fails with a non-busy error, or
// maxBusyAttempts is reached. The delay doubles after every busy attempt.
func retryOnBusy(clock timeutil.Clock, fn func() error) error {
	delay := busyBaseDelay
	var err error
	for attempt := 1; attempt <= maxBusyAttempts; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyAttempts {
			clock.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
