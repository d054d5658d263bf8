package core

import (
	"errors"

	"tinygo.org/x/drivers"
)

// ClockSensor exposes a millisecond clock through the drivers.Sensor
// interface. Putting it in a firmware's sensor update loop keeps a polled
// clock fed without a dedicated call site.
type ClockSensor struct {
	clock  CountsMillis
	millis uint32
}

var _ drivers.Sensor = (*ClockSensor)(nil)

// NewClockSensor wraps clock as a sensor reporting drivers.Time
func NewClockSensor(clock CountsMillis) *ClockSensor {
	return &ClockSensor{clock: clock}
}

// Update polls the clock when which includes drivers.Time
func (c *ClockSensor) Update(which drivers.Measurement) error {
	if which&drivers.Time != 0 {
		c.millis = c.clock.Count()
	}
	return nil
}

// Millis returns the clock reading taken by the last Update
func (c *ClockSensor) Millis() uint32 {
	return c.millis
}

// SensorPoller calls Update on a sensor at a fixed millisecond interval
// using a Scheduler timer.
type SensorPoller struct {
	Sensor drivers.Sensor
	Which  drivers.Measurement

	State PollerState
	timer Timer
	sched *Scheduler

	running   bool // Inside Sensor.Update from poll
	restarted bool // Start was called during the current poll
}

// PollerState tracks the runtime state of a poller
type PollerState struct {
	Active    bool
	LastError error
	Updates   uint32
	PollRate  uint32 // Polling interval in milliseconds
}

// NewSensorPoller creates a stopped poller for the given measurements
func NewSensorPoller(sched *Scheduler, sensor drivers.Sensor, which drivers.Measurement) *SensorPoller {
	p := &SensorPoller{
		Sensor: sensor,
		Which:  which,
		sched:  sched,
	}
	p.timer.Handler = p.poll
	return p
}

// Start begins polling every pollRateMs milliseconds, first poll one
// interval from now. Called from the sensor's own Update, it only changes
// the rate and next wake time of the running timer.
func (p *SensorPoller) Start(pollRateMs uint32) error {
	if p.Sensor == nil {
		return errors.New("poller has no sensor")
	}
	if pollRateMs == 0 {
		return errors.New("poll rate must be greater than 0")
	}

	p.State.PollRate = pollRateMs
	p.State.Active = true

	if p.running {
		// poll reschedules the timer when Update returns
		p.timer.WakeTime = p.sched.Now() + pollRateMs
		p.restarted = true
		return nil
	}

	p.sched.Cancel(&p.timer)
	p.timer.WakeTime = p.sched.Now() + pollRateMs
	p.sched.Schedule(&p.timer)
	return nil
}

// Stop cancels polling
func (p *SensorPoller) Stop() {
	p.State.Active = false
	p.sched.Cancel(&p.timer)
}

// poll is the timer callback. The next poll is one interval after the
// previous wake time; when the dispatch was late by a whole interval or
// more, missed polls are dropped and the next one is one interval from now.
func (p *SensorPoller) poll(t *Timer) uint8 {
	if !p.State.Active {
		return SF_DONE
	}

	p.running = true
	p.restarted = false
	p.State.LastError = p.Sensor.Update(p.Which)
	p.State.Updates++
	p.running = false

	if !p.State.Active {
		return SF_DONE
	}
	if p.restarted {
		return SF_RESCHEDULE
	}

	next := t.WakeTime + p.State.PollRate
	if now := p.sched.Now(); !before(now, next) {
		next = now + p.State.PollRate
	}
	t.WakeTime = next
	return SF_RESCHEDULE
}
