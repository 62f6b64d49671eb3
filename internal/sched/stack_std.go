//go:build !tinygo

package sched

import "runtime/debug"

func captureStack() []byte {
	return debug.Stack()
}
