package config

import (
	"encoding/json"
	"errors"

	"systick/core"
)

// Calibration sources
const (
	SourceBuiltIn = "builtin" // SYST_CALIB, falling back to ClockHz
	SourceHz      = "hz"      // ClockHz only
)

// ClockConfig describes how firmware sets up its millisecond clock
type ClockConfig struct {
	Source         string `json:"source"`           // "builtin" or "hz"
	ClockHz        uint32 `json:"clock_hz"`         // SysTick clock frequency
	PollIntervalMs uint32 `json:"poll_interval_ms"` // Default sensor poll interval
}

// LoadConfig parses a JSON configuration string and returns a ClockConfig
func LoadConfig(jsonData []byte) (*ClockConfig, error) {
	var config ClockConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if config.Source != SourceBuiltIn && config.Source != SourceHz {
		return nil, errors.New("unknown calibration source: " + config.Source)
	}
	if config.Source == SourceHz && config.ClockHz == 0 {
		return nil, errors.New("clock_hz is required for source \"hz\"")
	}

	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *ClockConfig) {
	if config.Source == "" {
		config.Source = SourceBuiltIn
	}
	if config.PollIntervalMs == 0 {
		config.PollIntervalMs = 100
	}
}

// DefaultConfig returns the configuration used when firmware embeds none:
// built-in calibration with no frequency fallback
func DefaultConfig() *ClockConfig {
	config := &ClockConfig{}
	applyDefaults(config)
	return config
}

// Calibration picks the SysTick calibration for the configured source. The
// built-in source uses the chip value when present and ClockHz otherwise.
func (c *ClockConfig) Calibration(d core.SysTickDriver) (core.Calibration, error) {
	if c.Source == SourceBuiltIn {
		if cal, ok := core.BuiltInCalibration(d); ok && cal.Valid() {
			return cal, nil
		}
		if c.ClockHz == 0 {
			return core.Calibration{}, errors.New("no built-in SysTick calibration and no clock_hz fallback")
		}
	}

	cal := core.CalibrationFromClockHz(c.ClockHz)
	if !cal.Valid() {
		return core.Calibration{}, core.ErrInvalidCalibration
	}
	return cal, nil
}
