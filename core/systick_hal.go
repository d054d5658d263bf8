package core

import "sync/atomic"

// ClockSource selects what drives the SysTick counter
type ClockSource uint8

const (
	ClockSourceExternal ClockSource = iota // Implementation-defined reference clock
	ClockSourceCore                        // Processor core clock
)

// MaxReload is the largest value the 24-bit SysTick reload register holds
const MaxReload = 0x00FF_FFFF

// SysTickDriver is the abstract SysTick interface that core code uses.
// Platform-specific implementations handle actual register access.
type SysTickDriver interface {
	// DisableInterrupt stops the counter from raising the SysTick exception
	DisableInterrupt()

	// SetClockSource selects the counter clock
	SetClockSource(src ClockSource)

	// SetReload writes the reload register (low 24 bits are used)
	SetReload(value uint32)

	// EnableCounter starts the counter
	EnableCounter()

	// HasWrapped reports whether the counter reached zero since the last
	// call. Reading clears the flag.
	HasWrapped() bool

	// TicksPer10ms returns the chip calibration value, or 0 when the chip
	// does not provide one
	TicksPer10ms() uint32
}

// SysTick is the ownership token for the one SysTick peripheral on the core.
// Obtain it with TakeSysTick and hand it to NewPollingSysTick.
type SysTick struct {
	driver SysTickDriver
	inUse  atomic.Bool
}

var (
	// Global singleton used by core code.
	sysTickDriver SysTickDriver
	sysTickTaken  atomic.Bool
)

// SetSysTickDriver is called by target-specific code to register its driver.
func SetSysTickDriver(d SysTickDriver) {
	sysTickDriver = d
}

// TakeSysTick hands out the SysTick token. Only the first call succeeds;
// later calls return false. Panics if no driver is registered.
func TakeSysTick() (*SysTick, bool) {
	if sysTickDriver == nil {
		panic("SysTick driver not configured")
	}
	if !sysTickTaken.CompareAndSwap(false, true) {
		return nil, false
	}
	return &SysTick{driver: sysTickDriver}, true
}

// Driver exposes the register driver behind the token
func (s *SysTick) Driver() SysTickDriver {
	return s.driver
}
