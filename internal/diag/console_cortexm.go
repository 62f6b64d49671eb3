//go:build tinygo && cortexm

package diag

import (
	"device/arm"
	"io"

	"tinygo.org/x/drivers/semihosting"
)

// Console returns the diagnostic channel: semihosting stdout, read by the
// debugger or emulator.
func Console() io.Writer { return semihosting.Stdout }

// Halt masks interrupts and parks the core. The code is only visible to a
// debugger.
func Halt(code int) {
	_ = code
	arm.DisableInterrupts()
	for {
		arm.Asm("wfi")
	}
}
