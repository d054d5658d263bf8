package core

// Calibration holds the SysTick reload value that makes one counter period
// last one millisecond.
type Calibration struct {
	// TicksPerMs is loaded into the reload register. It is one fewer than
	// the number of clock cycles in a millisecond, since the counter spends
	// an extra cycle detecting the rollover and reloading.
	TicksPerMs uint32
}

// CalibrationFromTenMs derives the calibration from a chip-reported
// "ticks per 10ms" value. The chip value already carries the off-by-one for
// a 10ms period, so it is added back before dividing.
//
// Returns false when the value is absent (zero) or too small to leave a
// non-negative reload value.
func CalibrationFromTenMs(tenMs uint32) (Calibration, bool) {
	if tenMs == 0 {
		return Calibration{}, false
	}
	cycles := (tenMs + 1) / 10
	if cycles == 0 {
		return Calibration{}, false
	}
	return Calibration{TicksPerMs: cycles - 1}, true
}

// BuiltInCalibration reads the calibration the chip reports in SYST_CALIB.
// Not every part has one (parts with a configurable core clock usually
// report zero); use CalibrationFromClockHz in that case.
func BuiltInCalibration(d SysTickDriver) (Calibration, bool) {
	return CalibrationFromTenMs(d.TicksPer10ms())
}

// CalibrationFromClockHz creates a calibration from the frequency of the
// clock driving SysTick, normally the core clock.
func CalibrationFromClockHz(hz uint32) Calibration {
	return Calibration{TicksPerMs: hz/1_000 - 1}
}

// Valid reports whether TicksPerMs fits the 24-bit reload register
func (c Calibration) Valid() bool {
	return c.TicksPerMs > 0 && c.TicksPerMs <= MaxReload
}
