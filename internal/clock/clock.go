package clock

import "time"

// Clock stamps draft snapshots and refresh times.
type Clock interface {
	Now() time.Time
}

type system struct{}

func NewSystem() Clock {
	return system{}
}

func (system) Now() time.Time {
	return time.Now().UTC()
}

type fixed time.Time

// NewFixed always reports t, for tests.
func NewFixed(t time.Time) Clock {
	return fixed(t.UTC())
}

func (f fixed) Now() time.Time {
	return time.Time(f)
}
