package suite

import (
	"fmt"

	"tickexec/internal/irq"
	"tickexec/internal/sched"
	"tickexec/internal/tick"
)

// failNow unwinds a task or setup after Fatalf.
type failNow struct{}

// T is the handle a case uses to spawn tasks and report failures. It
// satisfies testify's assert.TestingT, so cases can use assert directly.
//
// T belongs to the executor: use it from Setup, task polls and Verify only.
type T struct {
	name    string
	r       *runner
	tasks   int
	done    int
	failed  bool
	reason  string
	aborted bool
	over    bool
	verify  []func(t *T)
}

// Name returns the case name.
func (t *T) Name() string { return t.name }

// Helper is a no-op, present for assert.
func (t *T) Helper() {}

// Spawn adds a task to the case. Only valid during Setup.
func (t *T) Spawn(name string, task sched.Task) {
	if _, err := t.r.exec.Spawn(t.name+"/"+name, &caseTask{t: t, task: task}); err != nil {
		t.Fatalf("spawn %s: %v", name, err)
	}
	t.tasks++
}

// Signal allocates a signal id no other case uses.
func (t *T) Signal() irq.SignalID {
	id, ok := t.r.signal()
	if !ok {
		t.Fatalf("out of signal ids")
	}
	return id
}

// Signals returns the board's signal flags.
func (t *T) Signals() *irq.Signals { return t.r.board.Signals }

// Inject schedules an interrupt raising sig at tick at.
func (t *T) Inject(at tick.Tick, sig irq.SignalID) {
	if err := t.r.board.Injector().Schedule(at, sig); err != nil {
		t.Fatalf("inject signal %d at %d: %v", sig, at, err)
	}
}

// Boot returns the tick the executor starts at.
func (t *T) Boot() tick.Tick { return t.r.boot }

// Exact reports whether time is simulated, so that wake ticks can be
// checked for equality rather than lower bounds.
func (t *T) Exact() bool { return !t.r.board.Realtime() }

// WokeAt checks that a task resumed at deadline: exactly in simulation, not
// before it otherwise.
func (t *T) WokeAt(now, deadline tick.Tick) bool {
	if t.Exact() && now != deadline {
		t.Errorf("woke at %d, want %d", now, deadline)
		return false
	}
	if !tick.Reached(now, deadline) {
		t.Errorf("woke at %d, before deadline %d", now, deadline)
		return false
	}
	return true
}

// Errorf marks the case failed. The first reason is the one reported.
func (t *T) Errorf(format string, args ...any) {
	if !t.failed {
		t.failed = true
		t.reason = fmt.Sprintf(format, args...)
	}
}

// Fatalf marks the case failed and stops the calling task, which counts as
// finished. Every other task of the case stops at its next poll. From a task,
// it must be called before the poll registers a wait.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	t.aborted = true
	panic(failNow{})
}

// Failed reports whether the case has failed so far.
func (t *T) Failed() bool { return t.failed }

// Verify registers fn to run once every task of the case has finished.
func (t *T) Verify(fn func(t *T)) {
	t.verify = append(t.verify, fn)
}

func (t *T) taskDone() {
	t.done++
	if t.done == t.tasks {
		t.finish()
	}
}

func (t *T) finish() {
	if t.over {
		return
	}
	t.over = true
	if !t.aborted {
		for _, fn := range t.verify {
			if !t.protect(func() { fn(t) }) {
				break
			}
		}
	}
	t.r.record(t.name, Verdict{Pass: !t.failed, Reason: t.reason, Tick: t.r.board.Counter.Now()})
}

// protect runs fn, absorbing a Fatalf. It reports whether fn returned
// normally.
func (t *T) protect(fn func()) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			if _, fatal := v.(failNow); !fatal {
				panic(v)
			}
			ok = false
		}
	}()
	fn()
	return true
}

// caseTask counts a case's tasks as they finish.
type caseTask struct {
	t    *T
	task sched.Task
}

func (c *caseTask) Poll(cx *sched.Context) sched.Poll {
	res := sched.Done
	if !c.t.aborted {
		if !c.t.protect(func() { res = c.task.Poll(cx) }) {
			res = sched.Done
		}
	}
	if res == sched.Done {
		c.t.taskDone()
	}
	return res
}
