package suite

import (
	"github.com/stretchr/testify/assert"

	"tickexec/internal/job"
	"tickexec/internal/queue"
	"tickexec/internal/sched"
	"tickexec/internal/tick"
)

// Cases returns the battery, in report order.
func Cases() []Case {
	return []Case{
		{Name: "sleep_reaches_deadline", Setup: sleepReachesDeadline},
		{Name: "deadlines_wake_in_order", Setup: deadlinesWakeInOrder},
		{Name: "equal_deadlines_wake_fifo", Setup: equalDeadlinesWakeFIFO},
		{Name: "latched_signal_not_lost", Setup: latchedSignalNotLost},
		{Name: "interrupt_raises_signal", Setup: interruptRaisesSignal},
		{Name: "signal_wakes_every_waiter", Setup: signalWakesEveryWaiter},
		{Name: "unrelated_signal_keeps_sleeper", Setup: unrelatedSignalKeepsSleeper},
		{Name: "past_deadline_is_immediate", Setup: pastDeadlineIsImmediate},
		{Name: "periodic_without_drift", Setup: periodicWithoutDrift},
		{Name: "queue_order_under_back_pressure", Setup: queueOrder},
		{Name: "sleep_across_counter_wrap", Setup: sleepAcrossWrap},
	}
}

func sleepReachesDeadline(t *T) {
	var deadline tick.Tick
	t.Spawn("sleeper", sched.NewStages(
		func(cx *sched.Context) sched.Poll {
			deadline = tick.Add(cx.Now(), 10)
			return cx.SleepUntil(deadline)
		},
		func(cx *sched.Context) sched.Poll {
			t.WokeAt(cx.Now(), deadline)
			assert.Equal(t, sched.TimerDeadline(deadline), cx.Woken())
			return sched.Done
		},
	))
}

// recorder appends the name of each task as it wakes.
type recorder struct {
	order []string
}

func (r *recorder) sleepUntil(deadline tick.Tick, name string) sched.Task {
	return sched.NewStages(
		job.SleepUntil(deadline),
		job.Do(func(*sched.Context) { r.order = append(r.order, name) }),
	)
}

func deadlinesWakeInOrder(t *T) {
	rec := &recorder{}
	t.Spawn("t1", rec.sleepUntil(tick.Add(t.Boot(), 10), "t1"))
	t.Spawn("t2", rec.sleepUntil(tick.Add(t.Boot(), 5), "t2"))
	t.Verify(func(t *T) {
		assert.Equal(t, []string{"t2", "t1"}, rec.order)
	})
}

func equalDeadlinesWakeFIFO(t *T) {
	rec := &recorder{}
	deadline := tick.Add(t.Boot(), 8)
	for _, name := range []string{"a", "b", "c"} {
		t.Spawn(name, rec.sleepUntil(deadline, name))
	}
	t.Verify(func(t *T) {
		assert.Equal(t, []string{"a", "b", "c"}, rec.order)
	})
}

func latchedSignalNotLost(t *T) {
	sig := t.Signal()
	var raisedAt tick.Tick
	t.Spawn("waiter", sched.NewStages(
		func(cx *sched.Context) sched.Poll {
			raisedAt = cx.Now()
			cx.Raise(sig)
			return cx.Wait(sig)
		},
		func(cx *sched.Context) sched.Poll {
			t.WokeAt(cx.Now(), raisedAt)
			assert.Equal(t, sched.ExternalSignal(sig), cx.Woken())
			assert.False(t, t.Signals().Pending().Has(sig), "signal still latched after delivery")
			return sched.Done
		},
	))
}

func interruptRaisesSignal(t *T) {
	sig := t.Signal()
	at := tick.Add(t.Boot(), 7)
	t.Inject(at, sig)
	t.Spawn("waiter", sched.NewStages(
		job.WaitSignal(sig),
		func(cx *sched.Context) sched.Poll {
			t.WokeAt(cx.Now(), at)
			return sched.Done
		},
	))
}

func signalWakesEveryWaiter(t *T) {
	sig := t.Signal()
	woke := 0
	for _, name := range []string{"w1", "w2", "w3"} {
		t.Spawn(name, sched.NewStages(
			job.WaitSignal(sig),
			job.Do(func(*sched.Context) { woke++ }),
		))
	}
	t.Spawn("raiser", sched.NewStages(
		job.Sleep(3),
		job.Do(func(cx *sched.Context) {
			assert.Zero(t, woke, "waiters woke before the raise")
			cx.Raise(sig)
		}),
	))
	t.Verify(func(t *T) {
		assert.Equal(t, 3, woke)
	})
}

func unrelatedSignalKeepsSleeper(t *T) {
	sig := t.Signal()
	var deadline tick.Tick
	t.Spawn("sleeper", sched.NewStages(
		func(cx *sched.Context) sched.Poll {
			deadline = tick.Add(cx.Now(), 12)
			return cx.SleepUntil(deadline)
		},
		func(cx *sched.Context) sched.Poll {
			t.WokeAt(cx.Now(), deadline)
			return sched.Done
		},
	))
	t.Spawn("noise", sched.NewStages(
		job.Sleep(4),
		job.Do(func(cx *sched.Context) { cx.Raise(sig) }),
		job.WaitSignal(sig),
	))
}

func pastDeadlineIsImmediate(t *T) {
	var start tick.Tick
	t.Spawn("late", sched.NewStages(
		func(cx *sched.Context) sched.Poll {
			start = cx.Now()
			return cx.SleepUntil(tick.Tick(uint32(start) - 5))
		},
		func(cx *sched.Context) sched.Poll {
			t.WokeAt(cx.Now(), start)
			return sched.Done
		},
	))
}

func periodicWithoutDrift(t *T) {
	const period, runs = 10, 4
	var start tick.Tick
	var at []tick.Tick
	p := job.NewPeriodic(period, runs, func(cx *sched.Context, _ int) {
		at = append(at, cx.Now())
	})
	started := false
	t.Spawn("periodic", sched.TaskFunc(func(cx *sched.Context) sched.Poll {
		if !started {
			started = true
			start = cx.Now()
		}
		return p.Poll(cx)
	}))
	t.Verify(func(t *T) {
		if !assert.Len(t, at, runs) {
			return
		}
		for k, now := range at {
			t.WokeAt(now, tick.Add(start, uint32(k+1)*period))
		}
	})
}

func queueOrder(t *T) {
	notEmpty, notFull := t.Signal(), t.Signal()
	q := queue.New[int](2, t.Signals(), notEmpty, notFull)
	const n = 6

	next := 1
	t.Spawn("producer", sched.TaskFunc(func(cx *sched.Context) sched.Poll {
		for next <= n {
			if q.Push(cx, next) == sched.Pending {
				return sched.Pending
			}
			next++
		}
		return sched.Done
	}))

	var got []int
	resting := false
	t.Spawn("consumer", sched.TaskFunc(func(cx *sched.Context) sched.Poll {
		for len(got) < n {
			if !resting {
				resting = true
				return cx.SleepFor(2)
			}
			v, p := q.Pop(cx)
			if p == sched.Pending {
				return sched.Pending
			}
			resting = false
			assert.LessOrEqual(t, q.Len(), q.Cap())
			got = append(got, v)
		}
		return sched.Done
	}))

	t.Verify(func(t *T) {
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, got)
		assert.True(t, q.Empty())
	})
}

func sleepAcrossWrap(t *T) {
	var start, deadline tick.Tick
	t.Spawn("sleeper", sched.NewStages(
		func(cx *sched.Context) sched.Poll {
			start = cx.Now()
			deadline = tick.Add(start, 32)
			return cx.SleepUntil(deadline)
		},
		func(cx *sched.Context) sched.Poll {
			now := cx.Now()
			t.WokeAt(now, deadline)
			assert.True(t, tick.Before(start, now), "tick %d not after %d", now, start)
			return sched.Done
		},
	))
}
