package engine

import "time"

// Clock supplies wall time for created_at, decided_at and age cutoffs.
// Implemented by SystemClock (production) and testutil.ManualClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
//
// Thread-safety: stateless and safe for concurrent use.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
