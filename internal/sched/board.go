package sched

import (
	"time"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

// Board wires the interrupt-shared state for one executor: the tick counter,
// the wake line, the signal flags and the interrupt source selected by the
// configured mode.
type Board struct {
	Counter *tick.Counter
	Line    *irq.Line
	Signals *irq.Signals

	// exactly one of these is set
	Machine *Machine
	Clock   *TickClock
}

// NewBoard creates a board with its own counter at cfg.BootTick.
func NewBoard(cfg Config) *Board {
	return newBoard(cfg, tick.NewCounter(tick.Tick(cfg.BootTick)))
}

// NewSystemBoard creates the board around the process-wide tick counter,
// booting it at cfg.BootTick. Firmware has exactly one.
func NewSystemBoard(cfg Config) *Board {
	return newBoard(cfg, tick.Boot(tick.Tick(cfg.BootTick)))
}

func newBoard(cfg Config, counter *tick.Counter) *Board {
	b := &Board{
		Counter: counter,
		Line:    irq.NewLine(),
	}
	b.Signals = irq.NewSignals(b.Line)
	if cfg.Mode == ModeRealtime {
		b.Clock = NewTickClock(b.Counter, b.Signals, b.Line, time.Duration(cfg.TickMS)*time.Millisecond)
	} else {
		b.Machine = NewMachine(b.Counter, b.Signals, b.Line, cfg.MaxTicks)
	}
	return b
}

// Realtime reports whether ticks come from the wall clock.
func (b *Board) Realtime() bool { return b.Clock != nil }

// Idler returns the board's idle hook.
func (b *Board) Idler() Idler {
	if b.Clock != nil {
		return b.Clock
	}
	return b.Machine
}

// Injector returns the board's interrupt injector.
func (b *Board) Injector() Injector {
	if b.Clock != nil {
		return b.Clock
	}
	return b.Machine
}

// NewExecutor creates an executor running on the board.
func (b *Board) NewExecutor(cfg Config, opts ...Option) *Executor {
	return New(cfg, b.Counter, b.Signals, b.Idler(), opts...)
}
