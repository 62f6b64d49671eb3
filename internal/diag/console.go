//go:build !(tinygo && cortexm)

package diag

import (
	"io"
	"os"
)

// Console returns the diagnostic channel.
func Console() io.Writer { return os.Stdout }

// Halt stops the program with code.
func Halt(code int) {
	os.Exit(code)
}
