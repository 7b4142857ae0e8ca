// clock.go — Timer source, swappable for deterministic tests.
package scheduler

import "time"

// Timer is the part of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
