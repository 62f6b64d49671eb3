//go:build !tinygo

package irq

import "sync"

// mask stands in for the interrupt mask on the host: simulated interrupt
// handlers and the executor both take it, so holding it is equivalent to
// running with interrupts disabled.
var mask sync.Mutex

// Free runs fn in a critical section. Keep fn short, it delays every
// interrupt handler for its duration.
func Free(fn func()) {
	mask.Lock()
	defer mask.Unlock()
	fn()
}
