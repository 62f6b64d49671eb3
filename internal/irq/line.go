package irq

// Line is the wake line the idle loop parks on. Pending it from an interrupt
// handler is the equivalent of an interrupt arriving while the core is in
// WFI: the executor resumes, or, if it was not asleep yet, its next attempt
// to sleep returns at once.
type Line struct {
	ch chan struct{}
}

// NewLine creates an unpended line.
func NewLine() *Line {
	return &Line{ch: make(chan struct{}, 1)}
}

// Pend marks the line pending. It never blocks and coalesces repeated
// pends into one, so it is safe from interrupt context.
func (l *Line) Pend() {
	select {
	case l.ch <- struct{}{}:
	default:
	}
}

// Take clears the line, reporting whether it was pending.
func (l *Line) Take() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// C exposes the line for select based parking.
func (l *Line) C() <-chan struct{} { return l.ch }
