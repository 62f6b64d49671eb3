// internal/sched/schedulerEvent.go

package sched

import (
	"tickexec/internal/tick"
)

// StatusKind represents the type of executor event
type StatusKind int

const (
	StatusSpawn StatusKind = iota
	StatusDispatch
	StatusSuspend
	StatusWake
	StatusFinish
	StatusSleep
	StatusSpurious
	StatusHalt
)

// StatusEvent is emitted on every executor transition that involves a task,
// and on every sleep and wake of the executor itself.
type StatusEvent struct {
	Tick   tick.Tick
	Kind   StatusKind
	TaskID TaskID
	Name   string
	Reason WaitReason // the wait registered (Suspend), satisfied (Wake), or the sleep deadline (Sleep)
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusSpawn:
		return "Spawn"
	case StatusDispatch:
		return "Dispatch"
	case StatusSuspend:
		return "Suspend"
	case StatusWake:
		return "Wake"
	case StatusFinish:
		return "Finish"
	case StatusSleep:
		return "Sleep"
	case StatusSpurious:
		return "Spurious"
	case StatusHalt:
		return "Halt"
	default:
		return "Unknown"
	}
}

// Observer receives status events synchronously from the executor loop. It
// runs in executor context and must not block.
type Observer func(StatusEvent)
