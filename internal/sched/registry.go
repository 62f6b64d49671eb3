// internal/sched/registry.go

package sched

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// SignalSource is the interrupt-shared flag set the registry consumes.
type SignalSource interface {
	Take(mask irq.SignalSet) irq.SignalSet
}

type waitEntry struct {
	waker  Waker
	reason WaitReason
	seq    uint64
}

// timerKey orders the deadline index: wrap-aware deadline, then insertion.
type timerKey struct {
	deadline tick.Tick
	seq      uint64
}

func timerCmp(a, b any) int {
	ka, kb := a.(timerKey), b.(timerKey)
	if c := tick.Compare(ka.deadline, kb.deadline); c != 0 {
		return c
	}
	switch {
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// Registry tracks the pending wait of every suspended task.
//
// Entries live in a fixed table indexed by task id; order holds the ids in
// insertion order, which is the order CheckAndWake reports them in. Timer
// entries are also indexed by deadline so the nearest one can be found
// without a scan.
//
// The registry belongs to the executor and is never touched from interrupt
// context.
type Registry struct {
	entries [MaxTasks]waitEntry
	waiting [MaxTasks]bool
	order   [MaxTasks]TaskID
	n       int
	seq     uint64
	timers  *redblacktree.Tree
	sigMask irq.SignalSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{timers: redblacktree.NewWith(timerCmp)}
}

// Register inserts the wait for w's task. A task may hold at most one wait.
// Timer deadlines must lie within tick.MaxDelay of the current tick, or the
// deadline index loses its order.
func (r *Registry) Register(w Waker, reason WaitReason) error {
	if int(w.id) >= MaxTasks || r.waiting[w.id] {
		return ErrAlreadyWaiting
	}
	r.seq++
	r.entries[w.id] = waitEntry{waker: w, reason: reason, seq: r.seq}
	r.waiting[w.id] = true
	r.order[r.n] = w.id
	r.n++

	switch reason.Kind {
	case WaitTimer:
		r.timers.Put(timerKey{deadline: reason.Deadline, seq: r.seq}, w.id)
	case WaitSignal:
		r.sigMask |= reason.Signal.Mask()
	}
	return nil
}

// Waiting returns the pending wait of id, if any.
func (r *Registry) Waiting(id TaskID) (WaitReason, bool) {
	if int(id) >= MaxTasks || !r.waiting[id] {
		return WaitReason{}, false
	}
	return r.entries[id].reason, true
}

// Len returns the number of pending waits.
func (r *Registry) Len() int { return r.n }

// NextDeadline returns the nearest timer deadline, if any timer is pending.
func (r *Registry) NextDeadline() (tick.Tick, bool) {
	node := r.timers.Left()
	if node == nil {
		return 0, false
	}
	return node.Key.(timerKey).deadline, true
}

// CheckAndWake removes every satisfied wait and appends its waker to dst, in
// insertion order. A timer wait is satisfied once now reaches its deadline; a
// signal wait once its flag is taken from signals. Only flags some entry
// waits on are taken, and a taken flag wakes every entry waiting on it.
//
// When nothing is satisfied, dst is returned unchanged and neither the
// registry nor signals is modified.
func (r *Registry) CheckAndWake(now tick.Tick, signals SignalSource, dst []Waker) []Waker {
	if r.n == 0 {
		return dst
	}

	var fired irq.SignalSet
	if r.sigMask != 0 && signals != nil {
		fired = signals.Take(r.sigMask)
	}
	if fired == 0 {
		if deadline, ok := r.NextDeadline(); !ok || !tick.Reached(now, deadline) {
			return dst
		}
	}

	kept := 0
	var mask irq.SignalSet
	for i := 0; i < r.n; i++ {
		id := r.order[i]
		e := &r.entries[id]
		due := false
		switch e.reason.Kind {
		case WaitTimer:
			due = tick.Reached(now, e.reason.Deadline)
		case WaitSignal:
			due = fired.Has(e.reason.Signal)
		}
		if !due {
			if e.reason.Kind == WaitSignal {
				mask |= e.reason.Signal.Mask()
			}
			r.order[kept] = id
			kept++
			continue
		}
		if e.reason.Kind == WaitTimer {
			r.timers.Remove(timerKey{deadline: e.reason.Deadline, seq: e.seq})
		}
		r.waiting[id] = false
		dst = append(dst, e.waker)
	}
	r.n = kept
	r.sigMask = mask
	return dst
}
