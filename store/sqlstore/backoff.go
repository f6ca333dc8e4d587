package sqlstore

import (
	"math"
	"math/rand/v2"
	"time"
)

// backoffConfig controls the jittered exponential backoff used to retry
// operations that hit SQLITE_BUSY under the single-writer connection,
// adapted from the teacher's root backoff.go BackoffConfig. The teacher
// used this shape to space out handler retries; here it spaces out lock
// contention retries instead, since store.Store's retry semantics
// (spec.md §4.1) are a job-level concern handled by Complete, not a
// connection-level concern.
type backoffConfig struct {
	maxRetries          uint32
	initialInterval     time.Duration
	maxInterval         time.Duration
	multiplier          float64
	randomizationFactor float64
}

var defaultLockBackoff = backoffConfig{
	maxRetries:          5,
	initialInterval:     5 * time.Millisecond,
	maxInterval:         200 * time.Millisecond,
	multiplier:          2.0,
	randomizationFactor: 0.3,
}

type backoffCounter struct {
	backoffConfig
}

func (bc *backoffCounter) next(attempt uint32) (time.Duration, bool) {
	if bc.maxRetries > 0 && attempt > bc.maxRetries {
		return 0, false
	}
	exp := float64(bc.initialInterval) * math.Pow(bc.multiplier, float64(attempt-1))
	if exp > float64(bc.maxInterval) {
		exp = float64(bc.maxInterval)
	}
	if bc.randomizationFactor > 0 {
		delta := bc.randomizationFactor * exp
		minExp := exp - delta
		maxExp := exp + delta
		exp = minExp + rand.Float64()*(maxExp-minExp)
	}
	return time.Duration(exp), true
}
