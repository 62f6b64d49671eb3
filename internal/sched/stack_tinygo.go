//go:build tinygo

package sched

// TinyGo has no stack unwinder on microcontroller targets.
func captureStack() []byte {
	return nil
}
