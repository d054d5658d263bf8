package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timer event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // Millisecond clock at event
	Value     uint32 // Context-dependent value
}

// Event type codes
const (
	EvtClockConfig   = 1 // Clock configured, Value = reload
	EvtClockRelease  = 2 // Clock released, Value = final count
	EvtTimerSchedule = 3 // Timer scheduled, Value = wake time
	EvtTimerFire     = 4 // Timer fired, Value = wake time
	EvtTimerPast     = 5 // Timer fired late, Value = lateness in ms
)

const (
	TimingRingSize = 16 // Keep last 16 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// recordTiming stores an event in the ring. Callers hold the critical section.
func recordTiming(eventType uint8, clock, value uint32) {
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Clock:     clock,
		Value:     value,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// RecordTiming captures a timing event in the ring buffer
func RecordTiming(eventType uint8, clock, value uint32) {
	state := disableInterrupts()
	recordTiming(eventType, clock, value)
	restoreInterrupts(state)
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		var name string
		switch evt.EventType {
		case EvtClockConfig:
			name = "CLOCK_CONFIG"
		case EvtClockRelease:
			name = "CLOCK_RELEASE"
		case EvtTimerSchedule:
			name = "TIMER_SCHED"
		case EvtTimerFire:
			name = "TIMER_FIRE"
		case EvtTimerPast:
			name = "TIMER_PAST!"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TIMING] " + name +
			" clock=" + utoa(evt.Clock) +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	state := disableInterrupts()
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	restoreInterrupts(state)
}
