package irq

import (
	"fmt"
	"math/bits"
	"strings"
	"sync/atomic"
)

// MaxSignals is the number of distinct signal ids.
const MaxSignals = 32

// SignalID identifies an interrupt-sourced event.
type SignalID uint8

// Valid reports whether id is below MaxSignals.
func (id SignalID) Valid() bool { return id < MaxSignals }

// Mask returns the single-bit set for id, or the empty set for an id that is
// not Valid.
func (id SignalID) Mask() SignalSet {
	if !id.Valid() {
		return 0
	}
	return SignalSet(1) << id
}

// SignalSet is a bitmask of signal ids.
type SignalSet uint32

// Has reports whether id is in the set.
func (s SignalSet) Has(id SignalID) bool { return s&id.Mask() != 0 }

// Len returns the number of ids in the set.
func (s SignalSet) Len() int { return bits.OnesCount32(uint32(s)) }

func (s SignalSet) String() string {
	if s == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for id := SignalID(0); id < MaxSignals; id++ {
		if !s.Has(id) {
			continue
		}
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	b.WriteByte('}')
	return b.String()
}

// Signals holds latched signal flags. Interrupt handlers raise them; the
// executor takes them when it delivers them to waiting tasks. A flag raised
// while nobody waits stays set until a waiter consumes it.
type Signals struct {
	_    [0]func() // prevent accidental copying.
	bits atomic.Uint32
	line *Line
}

// NewSignals creates a clear flag set that pends line on every raise. line
// may be nil.
func NewSignals(line *Line) *Signals {
	return &Signals{line: line}
}

// Raise sets id and pends the wake line. Safe from interrupt context. An id
// that is not Valid is ignored.
func (s *Signals) Raise(id SignalID) {
	if !id.Valid() {
		return
	}
	s.bits.Or(uint32(id.Mask()))
	if s.line != nil {
		s.line.Pend()
	}
}

// Pending returns the currently set flags without clearing them.
func (s *Signals) Pending() SignalSet {
	return SignalSet(s.bits.Load())
}

// Take atomically clears the flags of mask that are set and returns them.
// Flags outside mask, and flags raised after the swap, are left latched.
func (s *Signals) Take(mask SignalSet) SignalSet {
	for {
		old := s.bits.Load()
		got := old & uint32(mask)
		if got == 0 {
			return 0
		}
		if s.bits.CompareAndSwap(old, old&^got) {
			return SignalSet(got)
		}
	}
}
