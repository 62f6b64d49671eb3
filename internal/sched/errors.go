package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrSealed is returned by Spawn once the executor has started.
	ErrSealed = errors.New("sched: task table sealed after start")
	// ErrTableFull is returned by Spawn when every slot is taken.
	ErrTableFull = errors.New("sched: task table full")
	// ErrAlreadyWaiting is returned by Registry.Register for a task that
	// already holds a pending wait.
	ErrAlreadyWaiting = errors.New("sched: task already has a pending wait")
	// ErrDeadlock is returned by the simulated machine when every task waits
	// on a signal that nothing will ever raise.
	ErrDeadlock = errors.New("sched: no pending deadline or interrupt can wake the executor")
	// ErrWatchdog is returned by the simulated machine when the tick budget
	// is exhausted.
	ErrWatchdog = errors.New("sched: watchdog tick budget exhausted")
	// ErrInjectionsFull is returned when no more interrupts can be scheduled.
	ErrInjectionsFull = errors.New("sched: interrupt injection table full")

	// ErrBadSignal is returned when injecting a signal id of MaxSignals or above.
	ErrBadSignal = errors.New("sched: signal id out of range")
)

// ContractViolation reports a task breaking the executor's rules: two waits
// in one poll, suspending without a wait, finishing with a wait pending,
// asking for a deadline beyond tick.MaxDelay, or naming a signal id outside
// the flag set.
type ContractViolation struct {
	TaskID TaskID
	Name   string
	Op     string
	Detail string
}

func (v ContractViolation) Error() string {
	return fmt.Sprintf("sched: contract violation by task %d (%s) in %s: %s", v.TaskID, v.Name, v.Op, v.Detail)
}
