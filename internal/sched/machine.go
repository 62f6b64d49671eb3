package sched

import (
	"context"

	"github.com/emirpasic/gods/trees/binaryheap"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// Machine is a deterministic stand-in for the board. Time only moves when
// the executor idles: each idle call fires tick interrupts one at a time,
// raising injected signals as they fall due, until the requested deadline
// or a pended wake.
type Machine struct {
	counter  *tick.Counter
	signals  *irq.Signals
	line     *irq.Line
	maxTicks uint32
	elapsed  uint32
	pending  *binaryheap.Heap // injection, by (at, seq)
	seq      uint64
}

// NewMachine creates a machine that gives up after maxTicks simulated ticks.
// signals must pend line when raised.
func NewMachine(counter *tick.Counter, signals *irq.Signals, line *irq.Line, maxTicks uint32) *Machine {
	return &Machine{
		counter:  counter,
		signals:  signals,
		line:     line,
		maxTicks: maxTicks,
		pending: binaryheap.NewWith(func(a, b any) int {
			ia, ib := a.(injection), b.(injection)
			if c := tick.Compare(ia.at, ib.at); c != 0 {
				return c
			}
			switch {
			case ia.seq < ib.seq:
				return -1
			case ia.seq > ib.seq:
				return 1
			default:
				return 0
			}
		}),
	}
}

// Schedule implements Injector.
func (m *Machine) Schedule(at tick.Tick, sig irq.SignalID) error {
	if !sig.Valid() {
		return ErrBadSignal
	}
	if m.pending.Size() >= maxInjections {
		return ErrInjectionsFull
	}
	m.seq++
	m.pending.Push(injection{at: at, sig: sig, seq: m.seq})
	return nil
}

// Elapsed returns the number of ticks simulated so far.
func (m *Machine) Elapsed() uint32 { return m.elapsed }

// Advance fires n tick interrupts.
func (m *Machine) Advance(n uint32) {
	for i := uint32(0); i < n; i++ {
		m.interrupt()
	}
}

// Idle implements Idler.
func (m *Machine) Idle(ctx context.Context, deadline tick.Tick, timed bool) error {
	for {
		if m.line.Take() {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if timed && tick.Reached(m.counter.Now(), deadline) {
			return nil
		}
		if !timed && m.pending.Empty() {
			return ErrDeadlock
		}
		if m.elapsed >= m.maxTicks {
			return ErrWatchdog
		}
		m.interrupt()
	}
}

func (m *Machine) interrupt() {
	now := m.counter.Interrupt()
	m.elapsed++
	for {
		v, ok := m.pending.Peek()
		if !ok {
			return
		}
		in := v.(injection)
		if !tick.Reached(now, in.at) {
			return
		}
		m.pending.Pop()
		m.signals.Raise(in.sig)
	}
}
