package discovery

import "time"

// Timer is the subset of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the rotation timer and delivery delay can be driven
// manually in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
