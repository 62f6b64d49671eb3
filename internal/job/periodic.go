package job

import (
	"tickexec/internal/sched"
	"tickexec/internal/tick"
)

// Periodic is a task that runs fn every period ticks. Deadlines are absolute,
// start + k*period, so a late wake shortens the next interval instead of
// pushing every later run back.
type Periodic struct {
	period uint32
	count  int
	fn     func(cx *sched.Context, k int)

	started bool
	next    tick.Tick
	k       int
	maxLag  uint32
}

// NewPeriodic creates a task calling fn with k = 0, 1, ... at start+(k+1)*period,
// where start is the tick of its first poll. A count of zero runs forever.
func NewPeriodic(period uint32, count int, fn func(cx *sched.Context, k int)) *Periodic {
	if period == 0 {
		period = 1
	}
	return &Periodic{period: period, count: count, fn: fn}
}

// Poll implements sched.Task.
func (p *Periodic) Poll(cx *sched.Context) sched.Poll {
	now := cx.Now()
	if !p.started {
		p.started = true
		p.next = now
	} else {
		if lag := tick.Since(now, p.next); lag > p.maxLag {
			p.maxLag = lag
		}
		if p.fn != nil {
			p.fn(cx, p.k)
		}
		p.k++
		if p.count > 0 && p.k >= p.count {
			return sched.Done
		}
	}
	p.next = tick.Add(p.next, p.period)
	return cx.SleepUntil(p.next)
}

// Runs returns how many times fn has been called.
func (p *Periodic) Runs() int { return p.k }

// MaxLag returns the largest number of ticks a run started after its
// deadline.
func (p *Periodic) MaxLag() uint32 { return p.maxLag }
