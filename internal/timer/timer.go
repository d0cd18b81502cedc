// Package timer schedules cancelable delayed callbacks. Engines that run
// feedback delays, undo windows or card flip-backs take a Scheduler so tests
// can drive time by hand.
package timer

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle cancels a scheduled callback
type Handle interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the callback before it fired.
	Stop() bool
}

// Scheduler runs a callback after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Handle
}

var realClock = clockwork.NewRealClock()

// Real schedules callbacks on the wall clock
type Real struct{}

// AfterFunc runs f on its own goroutine after d
func (Real) AfterFunc(d time.Duration, f func()) Handle {
	return realClock.AfterFunc(d, f)
}

// Stop stops h if it is not nil
func Stop(h Handle) {
	if h != nil {
		h.Stop()
	}
}
