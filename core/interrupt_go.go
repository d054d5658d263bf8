//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// hostMask plays the role of the PRIMASK bit when running on a host, where
// foreground code and "interrupt handlers" are goroutines. It is not
// reentrant.
var hostMask sync.Mutex

// disableInterrupts takes the host mask lock
func disableInterrupts() State {
	hostMask.Lock()
	return 0
}

// restoreInterrupts releases the host mask lock
func restoreInterrupts(state State) {
	hostMask.Unlock()
}
