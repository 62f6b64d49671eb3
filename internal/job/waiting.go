package job

import (
	"tickexec/internal/irq"
	"tickexec/internal/sched"
	"tickexec/internal/tick"
)

// Sleep returns a step that suspends the task for n ticks.
func Sleep(n uint32) sched.Step {
	return func(cx *sched.Context) sched.Poll {
		return cx.SleepFor(n)
	}
}

// SleepUntil returns a step that suspends the task until deadline.
func SleepUntil(deadline tick.Tick) sched.Step {
	return func(cx *sched.Context) sched.Poll {
		return cx.SleepUntil(deadline)
	}
}

// WaitSignal returns a step that suspends the task until sig is raised.
func WaitSignal(sig irq.SignalID) sched.Step {
	return func(cx *sched.Context) sched.Poll {
		return cx.Wait(sig)
	}
}

// Do returns a step that runs fn and carries on without suspending.
func Do(fn func(cx *sched.Context)) sched.Step {
	return func(cx *sched.Context) sched.Poll {
		fn(cx)
		return sched.Done
	}
}
