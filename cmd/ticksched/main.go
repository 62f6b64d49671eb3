package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"

	"tickexec/internal/diag"
	"tickexec/internal/irq"
	"tickexec/internal/job"
	"tickexec/internal/queue"
	"tickexec/internal/sched"
	"tickexec/internal/tick"
)

const (
	sigButton irq.SignalID = iota
	sigSampleReady
	sigSampleRoom
)

func main() {
	path := "config.yml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// Read the configuration
	base := sched.DefaultConfig()
	base.Mode = sched.ModeRealtime
	base.TickMS = 10
	cfg, err := sched.LoadOver(path, base)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.ExitWhenDone = false
	level, err := diag.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	console := diag.Console()
	log := diag.NewLogger(os.Stderr, level)
	fmt.Fprintf(console, "Loaded config: %+v\n", cfg)

	sched.SetPanicHandler(func(info sched.PanicInfo) {
		fmt.Fprintf(console, "task %d (%s) panicked: %v\n%s", info.TaskID, info.Name, info.Value, info.Stack)
		diag.Halt(1)
	})

	if err := run(cfg, console, log); err != nil {
		log.Err().Err(err).Log("firmware stopped")
		os.Exit(1)
	}
}

func run(cfg sched.Config, console io.Writer, log *logiface.Logger[logiface.Event]) error {
	board := sched.NewSystemBoard(cfg)

	observers := []sched.Observer{}
	if cfg.TraceCSV != "" {
		tr, err := diag.CreateCSVTrace(cfg.TraceCSV)
		if err != nil {
			return err
		}
		defer tr.Close()
		observers = append(observers, tr.Observe)
	}
	if cfg.LogLevel == "trace" {
		observers = append(observers, diag.Printer(console))
	}
	opts := []sched.Option{sched.WithLogger(log)}
	if len(observers) > 0 {
		opts = append(opts, sched.WithObserver(diag.Tee(observers...)))
	}
	exec := board.NewExecutor(cfg, opts...)

	if err := spawnTasks(exec, board, console); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !board.Realtime() {
		for _, at := range []uint32{350, 1200, 2100} {
			if err := board.Injector().Schedule(tick.Add(board.Counter.Now(), at), sigButton); err != nil {
				return err
			}
		}
		err := exec.Run(ctx)
		report(console, exec, board)
		if errors.Is(err, sched.ErrWatchdog) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return board.Clock.Run(gctx) })
	g.Go(func() error { return pressButton(gctx, board.Signals, 700*time.Millisecond) })
	g.Go(func() error {
		defer cancel()
		err := exec.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err := g.Wait()
	report(console, exec, board)
	return err
}

func report(console io.Writer, exec *sched.Executor, board *sched.Board) {
	fmt.Fprintf(console, "stopped at tick %d, %d spurious wakes\n", board.Counter.Now(), exec.Spurious())
	for _, info := range exec.Tasks() {
		fmt.Fprintf(console, "  %02d %-10s %-9s %s\n", info.ID, info.Name, info.State, info.Reason)
	}
}

// pressButton plays the button's GPIO interrupt.
func pressButton(ctx context.Context, signals *irq.Signals, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			signals.Raise(sigButton)
		case <-ctx.Done():
			return nil
		}
	}
}

func spawnTasks(exec *sched.Executor, board *sched.Board, console io.Writer) error {
	samples := queue.New[int](4, board.Signals, sigSampleReady, sigSampleRoom)

	tasks := []struct {
		name string
		task sched.Task
	}{
		{"heartbeat", job.NewPeriodic(100, 0, func(cx *sched.Context, k int) {
			fmt.Fprintf(console, "Tick: %010d heartbeat %d\n", cx.Now(), k)
		})},
		{"sensor", newSensor(samples)},
		{"average", newAverager(samples, console)},
		{"button", newButton(console)},
	}
	for _, t := range tasks {
		if _, err := exec.Spawn(t.name, t.task); err != nil {
			return fmt.Errorf("spawn %s: %w", t.name, err)
		}
	}
	return nil
}

// newSensor samples a fake ADC every 25 ticks.
func newSensor(out *queue.Queue[int]) sched.Task {
	reading, pending := 0, false
	return sched.TaskFunc(func(cx *sched.Context) sched.Poll {
		if !pending {
			reading = int(uint32(cx.Now())*2654435761>>20) % 1024
			pending = true
		}
		if out.Push(cx, reading) == sched.Pending {
			return sched.Pending
		}
		pending = false
		return cx.SleepFor(25)
	})
}

// newAverager prints the mean of every four samples.
func newAverager(in *queue.Queue[int], console io.Writer) sched.Task {
	sum, n := 0, 0
	return sched.TaskFunc(func(cx *sched.Context) sched.Poll {
		for {
			v, p := in.Pop(cx)
			if p == sched.Pending {
				return sched.Pending
			}
			sum += v
			n++
			if n == 4 {
				fmt.Fprintf(console, "Tick: %010d average %d\n", cx.Now(), sum/n)
				sum, n = 0, 0
			}
		}
	})
}

// newButton counts presses, ignoring bounces for 5 ticks after each one.
func newButton(console io.Writer) sched.Task {
	presses := 0
	debouncing := false
	return sched.TaskFunc(func(cx *sched.Context) sched.Poll {
		if debouncing {
			debouncing = false
			cx.Clear(sigButton)
			return cx.Wait(sigButton)
		}
		if cx.Woken().Kind == sched.WaitSignal {
			presses++
			fmt.Fprintf(console, "Tick: %010d button pressed (%d)\n", cx.Now(), presses)
			debouncing = true
			return cx.SleepFor(5)
		}
		return cx.Wait(sigButton)
	})
}
