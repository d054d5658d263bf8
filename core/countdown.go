package core

import "time"

// MaxArmedMillis is the longest duration a countdown can time. The deadline
// test compares wrapping 32-bit values by their signed difference, which is
// only meaningful while start and wait are less than 2^31 ms (~24.8 days)
// apart. Longer requests are clamped.
const MaxArmedMillis = 1<<31 - 1

// CountDown is the generic non-blocking timer contract
type CountDown interface {
	// Start (re)arms the timer for d
	Start(d time.Duration)

	// Wait returns nil once the duration has elapsed and ErrWouldBlock
	// before that
	Wait() error
}

// MillisCountDown is a countdown driven by a CountsMillis source, normally a
// *PollingSysTick. Any number of them can share one source.
//
// A MillisCountDown is idle until Start and goes back to idle when Wait
// reports expiry.
type MillisCountDown struct {
	counter CountsMillis
	target  uint32
	armed   bool
}

var _ CountDown = (*MillisCountDown)(nil)

// NewMillisCountDown creates an idle countdown on counter
func NewMillisCountDown(counter CountsMillis) *MillisCountDown {
	return &MillisCountDown{counter: counter}
}

// StartMs arms the countdown for ms milliseconds. Calling it while armed
// restarts the countdown from now.
func (cd *MillisCountDown) StartMs(ms uint32) {
	if ms > MaxArmedMillis {
		ms = MaxArmedMillis
	}
	cd.target = cd.counter.Count() + ms
	cd.armed = true
}

// Start arms the countdown for d, truncated to whole milliseconds.
func (cd *MillisCountDown) Start(d time.Duration) {
	cd.StartMs(durationToMillis(d))
}

// Wait returns nil once the armed duration has passed, disarming the
// countdown, and ErrWouldBlock until then.
//
// The deadline counts as reached only once the clock is strictly past the
// target, so StartMs(0) expires on the next tick rather than immediately.
//
// Wait panics if the countdown is not armed: before the first Start, or
// after a previous Wait already returned nil.
func (cd *MillisCountDown) Wait() error {
	if !cd.armed {
		panic("countdown waited on without being started")
	}
	// Rollover-safe: see https://playground.arduino.cc/Code/TimingRollover/
	if int32(cd.counter.Count()-cd.target) > 0 {
		cd.armed = false
		return nil
	}
	return ErrWouldBlock
}

// Armed reports whether the countdown is running
func (cd *MillisCountDown) Armed() bool {
	return cd.armed
}

// durationToMillis truncates d to milliseconds, clamped to what a countdown
// can time
func durationToMillis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if ms > MaxArmedMillis {
		return MaxArmedMillis
	}
	return uint32(ms)
}
