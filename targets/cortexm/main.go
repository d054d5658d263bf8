//go:build tinygo && cortexm

package main

import (
	"systick/config"
	"systick/core"
	"time"

	"tinygo.org/x/drivers"
)

// Firmware clock configuration. The lm3s6965 QEMU board reports a SysTick
// calibration; clock_hz covers parts that do not.
const clockConfigJSON = `{
	"source": "builtin",
	"clock_hz": 12000000,
	"poll_interval_ms": 1000
}`

func main() {
	core.SetDebugWriter(func(s string) { println(s) })
	core.SetDebugEnabled(true)

	InitClock()

	cfg, err := config.LoadConfig([]byte(clockConfigJSON))
	if err != nil {
		panic("config: " + err.Error())
	}

	syst, ok := core.TakeSysTick()
	if !ok {
		panic("SysTick already taken")
	}

	cal, err := cfg.Calibration(syst.Driver())
	if err != nil {
		panic("calibration: " + err.Error())
	}

	clock, err := core.NewPollingSysTick(syst, cal)
	if err != nil {
		panic("systick: " + err.Error())
	}

	println("Delaying 1s...")
	clock.DelayMs(1_000)

	println("Delaying 2s...")
	clock.DelayMs(2_000)

	println("Looping for 10s...")

	// Heartbeat through the scheduler: the clock sensor reports uptime
	sched := core.NewScheduler(clock)
	uptime := core.NewClockSensor(clock)
	heartbeat := core.NewSensorPoller(sched, uptime, drivers.Time)
	if err := heartbeat.Start(cfg.PollIntervalMs); err != nil {
		panic("heartbeat: " + err.Error())
	}

	count10s := core.NewMillisCountDown(clock)
	count500ms := core.NewMillisCountDown(clock)

	count10s.Start(10 * time.Second)
	lastBeat := uint32(0)

	for {
		if count10s.Wait() == nil {
			break
		}

		println("Not yet.")
		count500ms.Start(500 * time.Millisecond)
		for count500ms.Wait() == core.ErrWouldBlock {
			sched.Dispatch()
		}

		if heartbeat.State.Updates != lastBeat {
			lastBeat = heartbeat.State.Updates
			println("uptime ms:", uptime.Millis())
		}
	}

	heartbeat.Stop()
	println("All done!")

	clock.Release()
	core.DumpTimingRing()
}
