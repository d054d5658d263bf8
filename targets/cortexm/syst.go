//go:build tinygo && cortexm

package main

import (
	"runtime/volatile"
	"systick/core"
	"unsafe"
)

// SysTick register block in the System Control Space (ARMv6-M/ARMv7-M)
const (
	systBase  = 0xE000E010
	systCSR   = systBase + 0x00 // Control and status
	systRVR   = systBase + 0x04 // Reload value
	systCVR   = systBase + 0x08 // Current value
	systCALIB = systBase + 0x0C // Calibration value
)

// SYST_CSR bits
const (
	csrEnable    = 1 << 0
	csrTickInt   = 1 << 1
	csrClkSource = 1 << 2
	csrCountFlag = 1 << 16
)

const calibTenMsMask = 0x00FF_FFFF

var (
	regCSR   = (*volatile.Register32)(unsafe.Pointer(uintptr(systCSR)))
	regRVR   = (*volatile.Register32)(unsafe.Pointer(uintptr(systRVR)))
	regCVR   = (*volatile.Register32)(unsafe.Pointer(uintptr(systCVR)))
	regCALIB = (*volatile.Register32)(unsafe.Pointer(uintptr(systCALIB)))
)

// CortexMSysTick implements core.SysTickDriver on the SCS SysTick registers
type CortexMSysTick struct{}

var _ core.SysTickDriver = CortexMSysTick{}

func (CortexMSysTick) DisableInterrupt() {
	regCSR.ClearBits(csrTickInt)
}

func (CortexMSysTick) SetClockSource(src core.ClockSource) {
	if src == core.ClockSourceCore {
		regCSR.SetBits(csrClkSource)
	} else {
		regCSR.ClearBits(csrClkSource)
	}
}

// SetReload writes the reload value and clears the current value so the
// first period starts from the new reload
func (CortexMSysTick) SetReload(value uint32) {
	regRVR.Set(value & core.MaxReload)
	regCVR.Set(0)
}

func (CortexMSysTick) EnableCounter() {
	regCSR.SetBits(csrEnable)
}

// HasWrapped reads COUNTFLAG, which the read itself clears
func (CortexMSysTick) HasWrapped() bool {
	return regCSR.Get()&csrCountFlag != 0
}

func (CortexMSysTick) TicksPer10ms() uint32 {
	return regCALIB.Get() & calibTenMsMask
}

// InitClock registers the SysTick driver with core
func InitClock() {
	core.SetSysTickDriver(CortexMSysTick{})
}
