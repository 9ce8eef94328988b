package clock

import "time"

// Clock allows injecting time into services and sweepers.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock that always returns the same instant. Useful for tests.
type Fixed struct {
	Instant time.Time
}

// NewFixed returns a clock pinned to t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{Instant: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.Instant
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Instant = f.Instant.Add(d)
}
