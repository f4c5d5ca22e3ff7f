package engine

import "time"

// Clock supplies commit timestamps.
// Tests substitute a fixed clock so committed records are reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
