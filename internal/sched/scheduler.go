// internal/sched/scheduler.go

package sched

import (
	"context"
	"fmt"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/joeycumines/logiface"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// Clock is the executor's view of the tick source.
type Clock interface {
	Now() tick.Tick
}

// Idler parks the processor until the next interrupt. When timed is set,
// the implementation must arrange for an interrupt no later than deadline;
// otherwise only an asynchronous interrupt (a raised signal) can end the
// idle period. Returning early, for any reason, is always allowed.
type Idler interface {
	Idle(ctx context.Context, deadline tick.Tick, timed bool) error
}

// slot is one entry of the task table.
type slot struct {
	name   string
	task   Task
	state  TaskState
	gen    uint32
	reason WaitReason // pending (Suspended) or last satisfied wait
	woken  WaitReason
}

// TaskInfo is a snapshot of one slot.
type TaskInfo struct {
	ID     TaskID
	Name   string
	State  TaskState
	Reason WaitReason
}

// Executor runs a fixed set of cooperative tasks on a single core.
//
// Woken tasks are dispatched in the order their waits were registered, as
// reported by Registry.CheckAndWake, not in slot order. Newly spawned tasks
// get their first poll in spawn order.
//
// Tasks are spawned at boot; once Run or Step is called the table is sealed.
// Everything except the clock and the signal flags is owned by the executor
// loop and needs no locking.
type Executor struct {
	clock    Clock
	signals  *irq.Signals
	idler    Idler
	log      *logiface.Logger[logiface.Event]
	observer Observer

	exitWhenDone bool

	slots    [MaxTasks]slot
	count    int
	finished int
	sealed   bool

	registry *Registry
	ready    *circularbuffer.Queue // TaskID, FIFO
	wakers   []Waker
	state    ExecState
	spurious uint64
}

// Option configures an Executor.
type Option func(e *Executor)

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(e *Executor) { e.log = l }
}

// WithObserver installs an observer for status events.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// New creates an executor reading time from clock, delivering signals from
// signals and parking through idler.
func New(cfg Config, clock Clock, signals *irq.Signals, idler Idler, opts ...Option) *Executor {
	e := &Executor{
		clock:        clock,
		signals:      signals,
		idler:        idler,
		exitWhenDone: cfg.ExitWhenDone,
		registry:     NewRegistry(),
		ready:        circularbuffer.New(MaxTasks),
		wakers:       make([]Waker, 0, MaxTasks),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Spawn registers a task in the next free slot. Tasks start Ready and are
// first polled in registration order.
func (e *Executor) Spawn(name string, t Task) (TaskID, error) {
	if e.sealed {
		return 0, ErrSealed
	}
	if e.count >= MaxTasks {
		return 0, ErrTableFull
	}
	id := TaskID(e.count)
	e.count++
	e.slots[id] = slot{name: name, task: t, state: StateReady}
	e.ready.Enqueue(id)
	e.emit(StatusSpawn, id, WaitReason{})
	return id, nil
}

// State returns the executor loop state.
func (e *Executor) State() ExecState { return e.state }

// Len returns the number of spawned tasks.
func (e *Executor) Len() int { return e.count }

// Finished reports whether every spawned task has finished.
func (e *Executor) Finished() bool { return e.finished == e.count }

// Spurious returns how many times the executor woke with nothing to do.
func (e *Executor) Spurious() uint64 { return e.spurious }

// Task returns a snapshot of the slot for id.
func (e *Executor) Task(id TaskID) (TaskInfo, bool) {
	if int(id) >= e.count {
		return TaskInfo{}, false
	}
	s := &e.slots[id]
	return TaskInfo{ID: id, Name: s.name, State: s.state, Reason: s.reason}, true
}

// Tasks returns snapshots of every slot in registration order.
func (e *Executor) Tasks() []TaskInfo {
	out := make([]TaskInfo, 0, e.count)
	for id := 0; id < e.count; id++ {
		info, _ := e.Task(TaskID(id))
		out = append(out, info)
	}
	return out
}

// Step performs one pass: collect satisfied waits, then poll every task that
// is ready at that point exactly once. It returns the number of tasks polled
// and never sleeps.
func (e *Executor) Step() int {
	e.sealed = true
	e.collect()
	return e.dispatch()
}

// Run drives the executor until ctx is done, the idler fails, or, when
// configured to exit when done, every task has finished.
func (e *Executor) Run(ctx context.Context) error {
	e.sealed = true
	e.log.Info().
		Int("tasks", e.count).
		Uint64("tick", uint64(e.clock.Now())).
		Log("executor started")

	slept := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		woke := e.collect()
		if e.ready.Empty() {
			if slept && woke == 0 {
				e.spurious++
				e.emit(StatusSpurious, 0, WaitReason{})
				if e.spurious&(e.spurious-1) == 0 {
					e.log.Warning().
						Uint64("spurious", e.spurious).
						Uint64("tick", uint64(e.clock.Now())).
						Log("woke with nothing to do")
				}
			}
			if e.exitWhenDone && e.Finished() {
				e.emit(StatusHalt, 0, WaitReason{})
				e.log.Info().
					Int("tasks", e.count).
					Uint64("tick", uint64(e.clock.Now())).
					Uint64("spurious", e.spurious).
					Log("all tasks finished")
				return nil
			}
			if err := e.sleep(ctx); err != nil {
				return err
			}
			slept = true
			continue
		}

		slept = false
		e.dispatch()
	}
}

func (e *Executor) sleep(ctx context.Context) error {
	deadline, timed := e.registry.NextDeadline()
	e.state = ExecSleeping
	var reason WaitReason
	if timed {
		reason = TimerDeadline(deadline)
	}
	e.emit(StatusSleep, 0, reason)

	err := e.idler.Idle(ctx, deadline, timed)
	e.state = ExecIdle
	if err != nil {
		return fmt.Errorf("sched: idle: %w", err)
	}
	return nil
}

// collect moves every task whose wait is satisfied to the ready queue, in
// wake order, and returns how many were woken.
func (e *Executor) collect() int {
	e.wakers = e.registry.CheckAndWake(e.clock.Now(), e.signals, e.wakers[:0])
	woke := 0
	for _, w := range e.wakers {
		if e.wake(w) {
			woke++
		}
	}
	return woke
}

// wake fires w. A waker for a task that is not suspended, or for an older
// suspension, does nothing.
func (e *Executor) wake(w Waker) bool {
	if int(w.id) >= e.count {
		return false
	}
	s := &e.slots[w.id]
	if s.state != StateSuspended || s.gen != w.gen {
		return false
	}
	s.state = StateReady
	s.woken = s.reason
	e.ready.Enqueue(w.id)
	e.emit(StatusWake, w.id, s.reason)
	return true
}

func (e *Executor) dispatch() int {
	n := e.ready.Size()
	if n == 0 {
		return 0
	}
	e.state = ExecDispatching
	for i := 0; i < n; i++ {
		v, ok := e.ready.Dequeue()
		if !ok {
			break
		}
		e.poll(v.(TaskID))
	}
	e.state = ExecIdle
	return n
}

func (e *Executor) poll(id TaskID) {
	s := &e.slots[id]
	if s.state != StateReady {
		return
	}
	e.emit(StatusDispatch, id, WaitReason{})

	cx := Context{e: e, id: id, woken: s.woken}
	switch e.resume(s, &cx) {
	case Done:
		s.state = StateFinished
		s.task = nil
		e.finished++
		e.emit(StatusFinish, id, WaitReason{})

	default:
		s.state = StateSuspended
		if !cx.waited {
			// unreachable with assertions on; the task stays parked for good
			return
		}
		s.gen++
		s.reason = cx.wait
		if err := e.registry.Register(Waker{id: id, gen: s.gen}, cx.wait); err != nil {
			panic(fmt.Errorf("sched: register wait for task %d: %w", id, err))
		}
		e.emit(StatusSuspend, id, cx.wait)
	}
}

// resume polls the task and checks the result against the task contract.
// A panic, including a contract violation, is handed to the fault hook and
// then continues to unwind.
func (e *Executor) resume(s *slot, cx *Context) (res Poll) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Crit().
				Int("task", int(cx.id)).
				Str("name", s.name).
				Str("panic", fmt.Sprint(r)).
				Log("task panicked")
			fault(PanicInfo{TaskID: cx.id, Name: s.name, Tick: cx.Now(), Value: r})
			panic(r)
		}
	}()

	res = s.task.Poll(cx)
	switch {
	case res == Done && cx.waited:
		cx.violate("Poll", fmt.Sprintf("returned Done while waiting on %s", cx.wait))
	case res != Done && !cx.waited:
		cx.violate("Poll", "returned Pending without registering a wait")
	}
	return res
}

func (e *Executor) emit(kind StatusKind, id TaskID, reason WaitReason) {
	if e.observer == nil && e.log == nil {
		return
	}
	ev := StatusEvent{Tick: e.clock.Now(), Kind: kind, TaskID: id, Reason: reason}
	if kind != StatusSleep && kind != StatusSpurious && kind != StatusHalt {
		ev.Name = e.slots[id].name
	}
	e.log.Debug().
		Uint64("tick", uint64(ev.Tick)).
		Int("task", int(id)).
		Str("name", ev.Name).
		Stringer("reason", reason).
		Log(kind.String())
	if e.observer != nil {
		e.observer(ev)
	}
}
