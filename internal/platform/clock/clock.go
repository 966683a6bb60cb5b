package clock

import "time"

// Clock abstracts time so services stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Frozen always reports the same instant.
type Frozen struct {
	At time.Time
}

func (f Frozen) Now() time.Time {
	return f.At
}
