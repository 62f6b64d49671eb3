package sched

import (
	"fmt"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// Context gives a task access to the executor for the duration of one poll.
// It must not be retained after Poll returns.
type Context struct {
	e      *Executor
	id     TaskID
	wait   WaitReason
	woken  WaitReason
	waited bool
}

// ID returns the current task's id.
func (c *Context) ID() TaskID { return c.id }

// Name returns the name the task was spawned with.
func (c *Context) Name() string { return c.e.slots[c.id].name }

// Now returns the current tick.
func (c *Context) Now() tick.Tick { return c.e.clock.Now() }

// Woken returns the wait that resumed this poll, or a WaitNone reason on the
// task's first poll.
func (c *Context) Woken() WaitReason { return c.woken }

// SleepUntil suspends the task until the tick counter reaches deadline. A
// deadline that has already passed wakes the task on the next check.
// Deadlines must lie within tick.MaxDelay of now, ahead or behind; anything
// further is a contract violation, and with assertions off it is clamped.
//
// It returns Pending so a step can end with `return cx.SleepUntil(d)`.
func (c *Context) SleepUntil(deadline tick.Tick) Poll {
	now := c.Now()
	if tick.Reached(now, deadline) {
		if behind := tick.Since(now, deadline); behind > tick.MaxDelay {
			c.violate("SleepUntil", fmt.Sprintf("deadline %d is %d ticks behind now %d, maximum %d",
				deadline, behind, now, tick.MaxDelay))
			deadline = now
		}
	} else if ahead := tick.Since(deadline, now); ahead > tick.MaxDelay {
		c.violate("SleepUntil", fmt.Sprintf("deadline %d is %d ticks ahead of now %d, maximum %d",
			deadline, ahead, now, tick.MaxDelay))
		deadline = tick.Add(now, tick.MaxDelay)
	}
	c.register("SleepUntil", TimerDeadline(deadline))
	return Pending
}

// SleepFor suspends the task for n ticks from now. n must not exceed
// tick.MaxDelay.
func (c *Context) SleepFor(n uint32) Poll {
	if n > tick.MaxDelay {
		c.violate("SleepFor", fmt.Sprintf("delay %d exceeds maximum %d", n, tick.MaxDelay))
		n = tick.MaxDelay
	}
	return c.SleepUntil(tick.Add(c.Now(), n))
}

// Wait suspends the task until sig is raised. Signals are latched: a signal
// raised before the wait is registered wakes the task on the next check.
func (c *Context) Wait(sig irq.SignalID) Poll {
	c.checkSignal("Wait", sig)
	c.register("Wait", ExternalSignal(sig))
	return Pending
}

// Raise sets sig from task context, the software equivalent of pending an
// interrupt.
func (c *Context) Raise(sig irq.SignalID) {
	c.checkSignal("Raise", sig)
	c.e.signals.Raise(sig)
}

// Clear drops sig if it is latched, reporting whether it was. Tasks waiting
// on sig are not woken.
func (c *Context) Clear(sig irq.SignalID) bool {
	c.checkSignal("Clear", sig)
	return c.e.signals.Take(sig.Mask()) != 0
}

func (c *Context) checkSignal(op string, sig irq.SignalID) {
	if !sig.Valid() {
		c.violate(op, fmt.Sprintf("signal id %d out of range, maximum %d", sig, irq.MaxSignals-1))
	}
}

func (c *Context) register(op string, reason WaitReason) {
	if c.waited {
		c.violate(op, fmt.Sprintf("already waiting on %s, cannot also wait on %s", c.wait, reason))
		return
	}
	c.wait = reason
	c.waited = true
}

func (c *Context) violate(op, detail string) {
	if !assertions {
		return
	}
	v := ContractViolation{TaskID: c.id, Name: c.Name(), Op: op, Detail: detail}
	c.e.log.Err().
		Int("task", int(c.id)).
		Str("name", v.Name).
		Str("op", op).
		Log(detail)
	panic(v)
}
