package core

import (
	"errors"
	"sync/atomic"
)

// CountsMillis abstracts a counter that increases as milliseconds go by.
type CountsMillis interface {
	// Count returns a value that never increments faster than once per
	// millisecond and wraps around at 2^32.
	Count() uint32
}

// Delayer is the blocking delay contract
type Delayer interface {
	// DelayMs returns after at least ms milliseconds
	DelayMs(ms uint32)
}

var (
	ErrNilSysTick         = errors.New("SysTick token is nil")
	ErrSysTickInUse       = errors.New("SysTick already drives a clock")
	ErrInvalidCalibration = errors.New("calibration outside SysTick reload range")
)

// PollingSysTick is a millisecond counter built on SysTick.
//
// SysTick is configured to reload every millisecond with its exception
// disabled. Each call to Count checks the COUNTFLAG rollover bit and, when it
// is set, advances the millisecond counter. Because nothing but polling moves
// the counter it keeps working while interrupts are masked, at the price of
// only being "no faster than" real time: if Count is not called at least
// once per millisecond, rollovers are lost and the count falls behind.
//
// The first millisecond may be short since the hardware counter can be
// anywhere in its period at construction.
//
// Count can be called from foreground code and interrupt handlers alike, so
// any number of MillisCountDown values may share one clock.
type PollingSysTick struct {
	syst *SysTick
	ms   atomic.Uint32
}

var _ CountsMillis = (*PollingSysTick)(nil)
var _ Delayer = (*PollingSysTick)(nil)

// NewPollingSysTick takes over SysTick and configures it for a 1ms period
// from the calibration. The token stays bound to the clock until Release.
func NewPollingSysTick(s *SysTick, cal Calibration) (*PollingSysTick, error) {
	if s == nil {
		return nil, ErrNilSysTick
	}
	if !cal.Valid() {
		return nil, ErrInvalidCalibration
	}
	if !s.inUse.CompareAndSwap(false, true) {
		return nil, ErrSysTickInUse
	}

	s.driver.DisableInterrupt()
	s.driver.SetClockSource(ClockSourceCore)
	s.driver.SetReload(cal.TicksPerMs)
	s.driver.EnableCounter()

	RecordTiming(EvtClockConfig, 0, cal.TicksPerMs)
	DebugPrintln("[SYSTICK] configured reload=" + utoa(cal.TicksPerMs))

	return &PollingSysTick{syst: s}, nil
}

// Count returns the milliseconds counted so far, wrapping at 2^32.
//
// Reading the rollover flag clears it, so Count is a query with a side
// effect: the increment is done with interrupts masked so that a handler
// preempting us cannot lose or double an increment.
func (c *PollingSysTick) Count() uint32 {
	syst := c.syst
	if syst == nil {
		panic("SysTick clock used after Release")
	}
	if syst.driver.HasWrapped() {
		state := disableInterrupts()
		c.ms.Add(1)
		restoreInterrupts(state)
	}
	return c.ms.Load()
}

// DelayMs busy-waits for at least ms milliseconds.
func (c *PollingSysTick) DelayMs(ms uint32) {
	countDown := NewMillisCountDown(c)
	countDown.StartMs(ms)
	if err := Block(countDown.Wait); err != nil {
		panic(err)
	}
}

// Release hands SysTick back. The counter is left running. No countdown
// bound to this clock may be used afterwards; Count panics once released.
func (c *PollingSysTick) Release() *SysTick {
	s := c.syst
	if s == nil {
		panic("SysTick clock released twice")
	}
	c.syst = nil
	s.inUse.Store(false)

	final := c.ms.Load()
	RecordTiming(EvtClockRelease, final, final)
	DebugPrintln("[SYSTICK] released at ms=" + utoa(final))

	return s
}
