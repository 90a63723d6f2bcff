// Package clock abstracts time for components that schedule deadlines.
// Production code uses the system clock; tests inject a Fake clock and
// drive it manually so timing-sensitive logic stays deterministic.
package clock

import "time"

// Timer is a single-shot timer that fires on its channel.
type Timer interface {
	// C returns the channel the timer fires on.
	C() <-chan time.Time
	// Stop prevents the timer from firing. Returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Clock provides the current time and deadline scheduling.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that receives the current time once d has elapsed.
	After(d time.Duration) <-chan time.Time
	// NewTimer creates a stoppable single-shot timer for d.
	NewTimer(d time.Duration) Timer
}

// System returns the Clock backed by the real time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return &systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (st *systemTimer) C() <-chan time.Time {
	return st.t.C
}

func (st *systemTimer) Stop() bool {
	return st.t.Stop()
}
