package app

import "time"

// Clock supplies the current instant. The scheduler and tests inject their
// own implementations; production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
