package core

// CriticalSection runs fn with interrupts globally masked and restores the
// previous mask when fn returns, including when fn panics.
//
// On hardware the mask nests, so fn may call Count, RecordTiming or the
// Scheduler methods. The host build backs the mask with a non-reentrant
// mutex: there, fn must not call anything in this package that masks
// interrupts itself (Count when a rollover is pending, RecordTiming,
// TimingEvents, ClearTimingRing, Scheduler methods), or it deadlocks. Read
// the clock before entering and pass the value in.
func CriticalSection(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
