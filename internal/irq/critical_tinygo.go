//go:build tinygo

package irq

import "runtime/interrupt"

// Free runs fn with interrupts disabled, restoring the previous mask after.
func Free(fn func()) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	fn()
}
