package tick

import (
	"sync"
	"sync/atomic"
)

// Counter is the tick counter shared between the timer interrupt and the
// executor. Reads and increments are single atomic operations on a 32-bit
// word, so neither side ever observes a torn value.
type Counter struct {
	_ [0]func() // prevent accidental copying.
	v atomic.Uint32
}

// NewCounter creates a counter that starts at boot.
func NewCounter(boot Tick) *Counter {
	c := &Counter{}
	c.v.Store(uint32(boot))
	return c
}

// Now returns the current tick.
func (c *Counter) Now() Tick {
	return Tick(c.v.Load())
}

// Interrupt advances the counter by exactly one and returns the new value.
// It must only be called from the timer interrupt handler.
func (c *Counter) Interrupt() Tick {
	return Tick(c.v.Add(1))
}

var (
	system     Counter
	systemOnce sync.Once
)

// Boot initialises the process-wide counter to t and returns it. Only the
// first call sets the value.
func Boot(t Tick) *Counter {
	systemOnce.Do(func() { system.v.Store(uint32(t)) })
	return &system
}

// System returns the process-wide counter.
func System() *Counter { return &system }

// Now returns the current tick of the process-wide counter.
func Now() Tick { return system.Now() }

// OnTickInterrupt is the body of the board's timer interrupt handler.
func OnTickInterrupt() Tick { return system.Interrupt() }
