package application

import "time"

// Clock lets services take timestamps that tests can pin.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now, in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
