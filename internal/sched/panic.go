package sched

import (
	"sync/atomic"

	"tickexec/internal/tick"
)

// PanicInfo describes the task panic that took the executor down.
type PanicInfo struct {
	TaskID TaskID
	Name   string
	Tick   tick.Tick // counter value when the poll panicked
	Value  any       // the recovered panic value

	// Violation is set when the task broke the executor's rules, rather than
	// panicking on its own.
	Violation *ContractViolation

	Stack []byte
}

var (
	faulted   atomic.Bool
	faultHook atomic.Pointer[func(PanicInfo)]
)

// InPanicMode reports whether a task has panicked.
func InPanicMode() bool {
	return faulted.Load()
}

// SetPanicHandler installs the process-wide fault hook, or removes it when fn
// is nil.
//
// The executor never recovers from a task panic. The hook sees the first one
// only, before it unwinds out of Run or Step; halting or resetting the device
// is up to the hook, which must not panic itself.
func SetPanicHandler(fn func(PanicInfo)) {
	if fn == nil {
		faultHook.Store(nil)
		return
	}
	faultHook.Store(&fn)
}

// fault hands the first panic to the hook.
func fault(info PanicInfo) {
	if !faulted.CompareAndSwap(false, true) {
		return
	}
	if v, ok := info.Value.(ContractViolation); ok {
		info.Violation = &v
	}
	info.Stack = captureStack()
	if fn := faultHook.Load(); fn != nil {
		(*fn)(info)
	}
}
