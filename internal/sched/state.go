package sched

import (
	"fmt"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// TaskState is the lifecycle state of a task slot.
//
//	Ready → Suspended   [Poll returned Pending]
//	Suspended → Ready   [wait satisfied, waker fired]
//	Ready → Finished    [Poll returned Done]
//	Finished            (inert, never reclaimed)
type TaskState uint8

const (
	StateEmpty TaskState = iota
	StateReady
	StateSuspended
	StateFinished
)

func (s TaskState) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateReady:
		return "Ready"
	case StateSuspended:
		return "Suspended"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// ExecState is the state of the executor loop.
//
//	Idle → Dispatching      [at least one task ready]
//	Dispatching → Idle      [pass complete]
//	Idle → Sleeping         [nothing ready]
//	Sleeping → Idle         [interrupt]
type ExecState uint8

const (
	ExecIdle ExecState = iota
	ExecDispatching
	ExecSleeping
)

func (s ExecState) String() string {
	switch s {
	case ExecIdle:
		return "Idle"
	case ExecDispatching:
		return "Dispatching"
	case ExecSleeping:
		return "Sleeping"
	default:
		return "Unknown"
	}
}

// WaitKind tells the variants of WaitReason apart.
type WaitKind uint8

const (
	WaitNone WaitKind = iota
	WaitTimer
	WaitSignal
)

// WaitReason is the single condition a suspended task waits for.
type WaitReason struct {
	Kind     WaitKind
	Deadline tick.Tick
	Signal   irq.SignalID
}

// TimerDeadline waits until the tick counter reaches deadline.
func TimerDeadline(deadline tick.Tick) WaitReason {
	return WaitReason{Kind: WaitTimer, Deadline: deadline}
}

// ExternalSignal waits until sig is raised.
func ExternalSignal(sig irq.SignalID) WaitReason {
	return WaitReason{Kind: WaitSignal, Signal: sig}
}

func (r WaitReason) String() string {
	switch r.Kind {
	case WaitTimer:
		return fmt.Sprintf("timer(%d)", r.Deadline)
	case WaitSignal:
		return fmt.Sprintf("signal(%d)", r.Signal)
	default:
		return "none"
	}
}

// Waker correlates a satisfied wait with the suspension that registered it.
// The generation changes on every suspension, so a waker left over from an
// earlier wait, or fired twice, wakes nothing.
type Waker struct {
	id  TaskID
	gen uint32
}

// TaskID returns the task the waker belongs to.
func (w Waker) TaskID() TaskID { return w.id }
