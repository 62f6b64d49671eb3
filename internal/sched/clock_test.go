package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"tickexec/internal/irq"
	"tickexec/internal/tick"
)

func TestMachineIdleStopsAtDeadline(t *testing.T) {
	t.Parallel()

	line := irq.NewLine()
	counter := tick.NewCounter(10)
	m := NewMachine(counter, irq.NewSignals(line), line, 100)

	require.NoError(t, m.Idle(context.Background(), 15, true))
	assert.Equal(t, tick.Tick(15), counter.Now())
	assert.Equal(t, uint32(5), m.Elapsed())

	// already reached: no ticks
	require.NoError(t, m.Idle(context.Background(), 12, true))
	assert.Equal(t, uint32(5), m.Elapsed())
}

func TestMachineInjectionsFireInOrder(t *testing.T) {
	t.Parallel()

	line := irq.NewLine()
	signals := irq.NewSignals(line)
	counter := tick.NewCounter(0)
	m := NewMachine(counter, signals, line, 100)

	require.NoError(t, m.Schedule(4, 1))
	require.NoError(t, m.Schedule(2, 0))

	require.NoError(t, m.Idle(context.Background(), 0, false))
	assert.Equal(t, tick.Tick(2), counter.Now())
	assert.Equal(t, irq.SignalID(0).Mask(), signals.Take(0xFFFFFFFF))

	require.NoError(t, m.Idle(context.Background(), 0, false))
	assert.Equal(t, tick.Tick(4), counter.Now())
	assert.Equal(t, irq.SignalID(1).Mask(), signals.Take(0xFFFFFFFF))

	require.ErrorIs(t, m.Idle(context.Background(), 0, false), ErrDeadlock)
}

func TestMachineInjectionTableBounded(t *testing.T) {
	t.Parallel()

	line := irq.NewLine()
	m := NewMachine(tick.NewCounter(0), irq.NewSignals(line), line, 100)
	for i := 0; i < maxInjections; i++ {
		require.NoError(t, m.Schedule(tick.Tick(i), 0))
	}
	require.ErrorIs(t, m.Schedule(99, 0), ErrInjectionsFull)
}

func TestInjectorsRejectBadSignal(t *testing.T) {
	t.Parallel()

	line := irq.NewLine()
	m := NewMachine(tick.NewCounter(0), irq.NewSignals(line), line, 100)
	assert.ErrorIs(t, m.Schedule(1, irq.MaxSignals), ErrBadSignal)

	c := NewTickClock(tick.NewCounter(0), irq.NewSignals(line), line, time.Millisecond)
	assert.ErrorIs(t, c.Schedule(1, irq.MaxSignals), ErrBadSignal)
	assert.NoError(t, c.Schedule(1, irq.MaxSignals-1))
}

func TestTickClockWakesOnlyAtAlarm(t *testing.T) {
	t.Parallel()

	line := irq.NewLine()
	counter := tick.NewCounter(0)
	c := NewTickClock(counter, irq.NewSignals(line), line, time.Millisecond)

	// drive the handler by hand
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, c.Idle(context.Background(), 3, true))
	}()
	c.interrupt()
	c.interrupt()
	select {
	case <-done:
		t.Fatal("woke before the alarm")
	case <-time.After(20 * time.Millisecond):
	}
	c.interrupt()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("alarm did not wake the idler")
	}
	assert.Equal(t, tick.Tick(3), counter.Now())
}

func TestTickClockRealtimeRun(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = ModeRealtime
	cfg.TickMS = 1
	b := NewBoard(cfg)
	require.True(t, b.Realtime())

	const sig irq.SignalID = 4
	require.NoError(t, b.Injector().Schedule(3, sig))

	var slept, signalled tick.Tick
	e := b.NewExecutor(cfg)
	_, err := e.Spawn("sleeper", NewStages(
		func(cx *Context) Poll { return cx.SleepFor(5) },
		func(cx *Context) Poll {
			slept = cx.Now()
			return Done
		},
	))
	require.NoError(t, err)
	_, err = e.Spawn("irq", NewStages(
		func(cx *Context) Poll { return cx.Wait(sig) },
		func(cx *Context) Poll {
			signalled = cx.Now()
			return Done
		},
	))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clockCtx, stopClock := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(clockCtx)
	g.Go(func() error { return b.Clock.Run(gctx) })
	g.Go(func() error {
		defer stopClock()
		return e.Run(ctx)
	})
	require.NoError(t, g.Wait())

	assert.True(t, e.Finished())
	assert.True(t, tick.Reached(slept, 5))
	assert.True(t, tick.Reached(signalled, 3))
}
