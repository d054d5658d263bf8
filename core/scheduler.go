package core

// Timer represents a scheduled event on the millisecond clock
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by wake time and runs the due ones when
// dispatched. Wake times are compared by signed difference, so a list that
// straddles counter rollover stays in order as long as no two timers are
// 2^31 ms or more apart.
type Scheduler struct {
	clock CountsMillis
	list  *Timer
}

// NewScheduler creates an empty scheduler driven by clock
func NewScheduler(clock CountsMillis) *Scheduler {
	return &Scheduler{clock: clock}
}

// before reports whether a comes strictly before b on the wrapping clock
func before(a, b uint32) bool {
	return int32(a-b) < 0
}

// Now returns the scheduler's clock reading
func (s *Scheduler) Now() uint32 {
	return s.clock.Count()
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	now := s.clock.Count()

	state := disableInterrupts()
	s.insert(t)
	recordTiming(EvtTimerSchedule, now, t.WakeTime)
	restoreInterrupts(state)
}

// insert places t after every timer with an earlier or equal wake time
func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || before(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Cancel removes t from the schedule. Returns false if it was not queued.
func (s *Scheduler) Cancel(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	link := &s.list
	for *link != nil {
		if *link == t {
			*link = t.Next
			t.Next = nil
			return true
		}
		link = &(*link).Next
	}
	return false
}

// popDue unlinks the head timer if its wake time has been reached
func (s *Scheduler) popDue(now uint32) *Timer {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	head := s.list
	if head == nil || before(now, head.WakeTime) {
		return nil
	}
	s.list = head.Next
	head.Next = nil // Clear Next pointer to avoid circular references
	return head
}

// Dispatch runs every timer whose wake time has been reached and returns
// how many handlers ran. Handlers run outside the critical section, so
// they may schedule or cancel other timers. A handler returning
// SF_RESCHEDULE must have moved its WakeTime forward.
func (s *Scheduler) Dispatch() int {
	now := s.clock.Count()
	fired := 0

	for {
		timer := s.popDue(now)
		if timer == nil {
			return fired
		}

		if late := now - timer.WakeTime; late > 0 {
			RecordTiming(EvtTimerPast, now, late)
		} else {
			RecordTiming(EvtTimerFire, now, timer.WakeTime)
		}

		fired++
		if timer.Handler(timer) == SF_RESCHEDULE {
			state := disableInterrupts()
			s.insert(timer)
			restoreInterrupts(state)
		}
	}
}

// Pending returns the number of queued timers
func (s *Scheduler) Pending() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	n := 0
	for t := s.list; t != nil; t = t.Next {
		n++
	}
	return n
}
