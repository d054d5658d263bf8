package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeSysTick is a test implementation of SysTickDriver
type fakeSysTick struct {
	calls    []string
	reload   uint32
	source   ClockSource
	tenMs    uint32
	wrapped  atomic.Bool
	autoWrap bool // every HasWrapped call reports a rollover
}

func (f *fakeSysTick) DisableInterrupt() {
	f.calls = append(f.calls, "disable_interrupt")
}

func (f *fakeSysTick) SetClockSource(src ClockSource) {
	f.source = src
	f.calls = append(f.calls, "set_clock_source")
}

func (f *fakeSysTick) SetReload(value uint32) {
	f.reload = value
	f.calls = append(f.calls, "set_reload")
}

func (f *fakeSysTick) EnableCounter() {
	f.calls = append(f.calls, "enable_counter")
}

func (f *fakeSysTick) HasWrapped() bool {
	if f.autoWrap {
		return true
	}
	return f.wrapped.Swap(false)
}

func (f *fakeSysTick) TicksPer10ms() uint32 {
	return f.tenMs
}

// wrap simulates the hardware counter reaching zero
func (f *fakeSysTick) wrap() {
	f.wrapped.Store(true)
}

func newTestClock(t *testing.T) (*PollingSysTick, *fakeSysTick) {
	t.Helper()
	fake := &fakeSysTick{}
	clock, err := NewPollingSysTick(&SysTick{driver: fake}, CalibrationFromClockHz(48_000_000))
	if err != nil {
		t.Fatalf("NewPollingSysTick failed: %v", err)
	}
	return clock, fake
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestPollingSysTickConfigure(t *testing.T) {
	clock, fake := newTestClock(t)

	expected := []string{"disable_interrupt", "set_clock_source", "set_reload", "enable_counter"}
	if len(fake.calls) != len(expected) {
		t.Fatalf("Expected calls %v, got %v", expected, fake.calls)
	}
	for i := range expected {
		if fake.calls[i] != expected[i] {
			t.Errorf("Call %d: expected %s, got %s", i, expected[i], fake.calls[i])
		}
	}

	if fake.source != ClockSourceCore {
		t.Errorf("Expected core clock source, got %d", fake.source)
	}
	if fake.reload != 47_999 {
		t.Errorf("Expected reload 47999, got %d", fake.reload)
	}
	if got := clock.Count(); got != 0 {
		t.Errorf("Expected initial count 0, got %d", got)
	}
}

func TestPollingSysTickCount(t *testing.T) {
	clock, fake := newTestClock(t)

	fake.wrap()
	if got := clock.Count(); got != 1 {
		t.Errorf("Expected count 1 after a rollover, got %d", got)
	}

	// The flag was consumed by the previous read
	if got := clock.Count(); got != 1 {
		t.Errorf("Expected count to stay at 1, got %d", got)
	}

	fake.wrap()
	fake.wrap() // Unpolled rollovers collapse into one
	if got := clock.Count(); got != 2 {
		t.Errorf("Expected count 2, got %d", got)
	}
}

func TestPollingSysTickMonotonic(t *testing.T) {
	clock, fake := newTestClock(t)
	clock.ms.Store(0xFFFF_FFF0)

	// Deterministic pseudo-random rollover pattern
	pattern := uint32(0x9E37_79B9)
	prev := clock.Count()
	wraps := uint32(0)
	for i := 0; i < 64; i++ {
		if pattern&1 != 0 {
			fake.wrap()
			wraps++
		}
		pattern = pattern>>1 | pattern<<31

		cur := clock.Count()
		if diff := int32(cur - prev); diff < 0 || diff > 1 {
			t.Fatalf("Step %d: count moved from %#x to %#x", i, prev, cur)
		}
		prev = cur
	}

	if got := prev - 0xFFFF_FFF0; got != wraps {
		t.Errorf("Expected %d increments across 2^32, got %d", wraps, got)
	}
}

func TestPollingSysTickConcurrentCount(t *testing.T) {
	clock, fake := newTestClock(t)
	const rollovers = 200

	var stop atomic.Bool
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := clock.Count()
			for !stop.Load() {
				cur := clock.Count()
				if int32(cur-prev) < 0 {
					t.Errorf("Count went backwards: %d -> %d", prev, cur)
					return
				}
				prev = cur
			}
		}()
	}

	for i := 0; i < rollovers; i++ {
		fake.wrap()
		for fake.wrapped.Load() {
			// Wait for one of the pollers to consume the rollover
			clock.Count()
		}
	}
	stop.Store(true)
	wg.Wait()

	if got := clock.Count(); got != rollovers {
		t.Errorf("Expected count %d, got %d", rollovers, got)
	}
}

func TestPollingSysTickDelayMs(t *testing.T) {
	fake := &fakeSysTick{autoWrap: true}
	clock, err := NewPollingSysTick(&SysTick{driver: fake}, CalibrationFromClockHz(16_000_000))
	if err != nil {
		t.Fatalf("NewPollingSysTick failed: %v", err)
	}

	// Every poll is one millisecond: start reads 1, target 4, expiry at 5
	clock.DelayMs(3)
	if got := clock.ms.Load(); got != 5 {
		t.Errorf("Expected count 5 after DelayMs(3), got %d", got)
	}
}

func TestPollingSysTickErrors(t *testing.T) {
	if _, err := NewPollingSysTick(nil, CalibrationFromClockHz(16_000_000)); !errors.Is(err, ErrNilSysTick) {
		t.Errorf("Expected ErrNilSysTick, got %v", err)
	}

	syst := &SysTick{driver: &fakeSysTick{}}
	if _, err := NewPollingSysTick(syst, Calibration{}); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("Expected ErrInvalidCalibration, got %v", err)
	}
	if _, err := NewPollingSysTick(syst, Calibration{TicksPerMs: MaxReload + 1}); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("Expected ErrInvalidCalibration, got %v", err)
	}

	clock, err := NewPollingSysTick(syst, CalibrationFromClockHz(16_000_000))
	if err != nil {
		t.Fatalf("NewPollingSysTick failed: %v", err)
	}
	if _, err := NewPollingSysTick(syst, CalibrationFromClockHz(16_000_000)); !errors.Is(err, ErrSysTickInUse) {
		t.Errorf("Expected ErrSysTickInUse, got %v", err)
	}

	released := clock.Release()
	if released != syst {
		t.Error("Release did not return the original SysTick")
	}
	if _, err := NewPollingSysTick(released, CalibrationFromClockHz(16_000_000)); err != nil {
		t.Errorf("Expected released SysTick to be reusable, got %v", err)
	}
}

func TestPollingSysTickRelease(t *testing.T) {
	clock, _ := newTestClock(t)
	clock.Release()

	mustPanic(t, "Count after Release", func() { clock.Count() })
	mustPanic(t, "second Release", func() { clock.Release() })
}

func TestTakeSysTick(t *testing.T) {
	defer func() {
		SetSysTickDriver(nil)
		sysTickTaken.Store(false)
	}()

	SetSysTickDriver(nil)
	sysTickTaken.Store(false)
	mustPanic(t, "TakeSysTick without driver", func() { TakeSysTick() })

	fake := &fakeSysTick{tenMs: 10_000}
	SetSysTickDriver(fake)

	syst, ok := TakeSysTick()
	if !ok {
		t.Fatal("Expected first TakeSysTick to succeed")
	}
	if syst.Driver() != fake {
		t.Error("Token does not wrap the registered driver")
	}

	if _, ok := TakeSysTick(); ok {
		t.Error("Expected second TakeSysTick to fail")
	}
}

func TestCriticalSection(t *testing.T) {
	clock, fake := newTestClock(t)
	fake.wrap()

	// Clock is read before masking, the value used inside
	now := clock.Count()
	var seen uint32
	CriticalSection(func() { seen = now })
	if seen != 1 {
		t.Errorf("Expected 1 inside critical section, got %d", seen)
	}

	// The mask must be released afterwards, also after a panic
	mustPanic(t, "panicking critical section", func() {
		CriticalSection(func() { panic("boom") })
	})
	fake.wrap()
	if got := clock.Count(); got != 2 {
		t.Errorf("Expected count 2 after critical sections, got %d", got)
	}
}
