// internal/sched/tickclock.go

package sched

import (
	"context"
	"time"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// maxInjections bounds the interrupts that can be scheduled ahead of time.
const maxInjections = 32

// Injector schedules a simulated peripheral interrupt that raises sig once
// the tick counter reaches at.
type Injector interface {
	Schedule(at tick.Tick, sig irq.SignalID) error
}

type injection struct {
	at  tick.Tick
	sig irq.SignalID
	seq uint64
}

// TickClock plays the role of the SysTick interrupt on the host: a ticker
// goroutine increments the counter once per period, raises any injected
// signals that are due, and pends the wake line when the alarm armed by Idle
// is reached. Ticks that do not reach the alarm do not wake the executor.
type TickClock struct {
	counter *tick.Counter
	signals *irq.Signals
	line    *irq.Line
	period  time.Duration

	// guarded by irq.Free
	alarm  tick.Tick
	armed  bool
	inject [maxInjections]injection
	n      int
}

// NewTickClock creates a clock but does not start it. signals must pend
// line when raised, so that raised signals wake the executor too.
func NewTickClock(counter *tick.Counter, signals *irq.Signals, line *irq.Line, period time.Duration) *TickClock {
	return &TickClock{
		counter: counter,
		signals: signals,
		line:    line,
		period:  period,
	}
}

// Run emits ticks at the configured period until ctx is done.
func (c *TickClock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.interrupt()
		case <-ctx.Done():
			return nil
		}
	}
}

// interrupt is the tick handler body.
func (c *TickClock) interrupt() {
	irq.Free(func() {
		now := c.counter.Interrupt()

		kept := 0
		for i := 0; i < c.n; i++ {
			in := c.inject[i]
			if tick.Reached(now, in.at) {
				c.signals.Raise(in.sig)
				continue
			}
			c.inject[kept] = in
			kept++
		}
		c.n = kept

		if c.armed && tick.Reached(now, c.alarm) {
			c.armed = false
			c.line.Pend()
		}
	})
}

// Schedule implements Injector.
func (c *TickClock) Schedule(at tick.Tick, sig irq.SignalID) error {
	if !sig.Valid() {
		return ErrBadSignal
	}
	var err error
	irq.Free(func() {
		if c.n == len(c.inject) {
			err = ErrInjectionsFull
			return
		}
		c.inject[c.n] = injection{at: at, sig: sig}
		c.n++
	})
	return err
}

// Idle implements Idler: arm the alarm for deadline, then park on the wake
// line. The alarm is armed with interrupts masked, so a deadline that passes
// between the executor's last check and the park is caught here.
func (c *TickClock) Idle(ctx context.Context, deadline tick.Tick, timed bool) error {
	if timed {
		reached := false
		irq.Free(func() {
			if tick.Reached(c.counter.Now(), deadline) {
				reached = true
				return
			}
			c.alarm = deadline
			c.armed = true
		})
		if reached {
			return nil
		}
	}

	select {
	case <-c.line.C():
	case <-ctx.Done():
	}
	return nil
}
