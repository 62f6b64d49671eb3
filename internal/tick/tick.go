// internal/tick/tick.go

// Package tick models the monotonic tick counter driven by the periodic timer
// interrupt. A Tick wraps at 32 bits, so every comparison goes through a
// signed difference instead of a raw < or <=.
package tick

// Tick is one unit of elapsed time as counted by the timer interrupt.
type Tick uint32

// MaxDelay is the largest relative delay a task may wait for.
//
// Live deadlines must stay within half the counter range of each other for
// the signed-difference ordering to be total, so this leaves the other
// quarter as headroom for an executor that is late to service a deadline.
const MaxDelay uint32 = 1 << 30

// Reached reports whether deadline is at or before now, across the wrap.
func Reached(now, deadline Tick) bool {
	return int32(uint32(now)-uint32(deadline)) >= 0
}

// Before reports whether a comes strictly before b, across the wrap.
func Before(a, b Tick) bool {
	return int32(uint32(a)-uint32(b)) < 0
}

// Compare orders a and b across the wrap: -1, 0 or +1.
func Compare(a, b Tick) int {
	switch d := int32(uint32(a) - uint32(b)); {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Add returns t advanced by n ticks, wrapping explicitly.
func Add(t Tick, n uint32) Tick {
	return Tick(uint32(t) + n)
}

// Since returns the number of ticks elapsed from then to now.
func Since(now, then Tick) uint32 {
	return uint32(now) - uint32(then)
}
