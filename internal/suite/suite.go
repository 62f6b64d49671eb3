// Package suite runs a battery of executor test cases on the executor itself
// and reports the verdicts over the diagnostic channel, ending with a line an
// off-device runner can match: TEST-SUITE-PASS or TEST-SUITE-FAIL <case>.
package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"

	"tickexec/internal/irq"
	"tickexec/internal/sched"
	"tickexec/internal/tick"
)

// Termination patterns.
const (
	PassPattern = "TEST-SUITE-PASS"
	FailPattern = "TEST-SUITE-FAIL"
)

// DefaultBootTick starts the counter just short of the wrap, so that every
// run crosses it.
const DefaultBootTick = 0xFFFFFFF0

// DefaultConfig is sched.DefaultConfig booting at DefaultBootTick.
func DefaultConfig() sched.Config {
	cfg := sched.DefaultConfig()
	cfg.BootTick = DefaultBootTick
	return cfg
}

// Case is one test. Setup runs at boot, before the executor starts, and
// spawns the case's tasks. The case is over once all of them finished.
type Case struct {
	Name  string
	Setup func(t *T)
}

// Verdict is the outcome of one case.
type Verdict struct {
	Pass   bool
	Reason string
	Tick   tick.Tick // when the verdict was reached
}

// Result pairs a case name with its verdict.
type Result struct {
	Name string
	Verdict
}

// Summary aggregates a run.
type Summary struct {
	Passed   int
	Failed   int
	Failures []string // case names, in registration order
	Results  []Result
	Tick     tick.Tick
}

// OK reports whether every case passed.
func (s Summary) OK() bool { return s.Failed == 0 && s.Passed > 0 }

type runner struct {
	board   *sched.Board
	exec    *sched.Executor
	out     io.Writer
	log     *logiface.Logger[logiface.Event]
	results *linkedhashmap.Map // string -> Verdict, in registration order
	cases   []*T
	boot    tick.Tick
	nextSig int
}

// Run spawns every case on a fresh board built from cfg, runs the executor
// until all of them are over, and writes the report to out. The returned
// error is only set when the suite itself could not be run; failed cases are
// reported through the Summary.
func Run(ctx context.Context, cfg sched.Config, cases []Case, out io.Writer, log *logiface.Logger[logiface.Event], opts ...sched.Option) (Summary, error) {
	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		if c.Name == "" || c.Setup == nil {
			return Summary{}, errors.New("suite: case needs a name and a setup")
		}
		if seen[c.Name] {
			return Summary{}, fmt.Errorf("suite: duplicate case %q", c.Name)
		}
		seen[c.Name] = true
	}

	cfg.ExitWhenDone = true
	r := &runner{
		board:   sched.NewBoard(cfg),
		out:     out,
		log:     log,
		results: linkedhashmap.New(),
		boot:    tick.Tick(cfg.BootTick),
	}
	r.exec = r.board.NewExecutor(cfg, append([]sched.Option{sched.WithLogger(log)}, opts...)...)

	fmt.Fprintf(out, "running %d tests (mode %s, boot tick %d)\n", len(cases), cfg.Mode, cfg.BootTick)
	for _, c := range cases {
		r.setup(c)
	}

	runErr := r.run(ctx)
	if runErr != nil {
		log.Err().Err(runErr).Log("executor stopped early")
	}
	for _, t := range r.cases {
		if t.over {
			continue
		}
		t.over = true
		reason := fmt.Sprintf("did not finish (%d of %d tasks done)", t.done, t.tasks)
		if runErr != nil {
			reason += ": " + runErr.Error()
		}
		if t.failed {
			reason = t.reason + "\n" + reason
		}
		r.record(t.name, Verdict{Reason: reason, Tick: r.board.Counter.Now()})
	}

	sum := r.summarize()
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("suite: interrupted: %w", err)
	}
	return sum, nil
}

func (r *runner) setup(c Case) {
	t := &T{name: c.Name, r: r}
	r.cases = append(r.cases, t)
	r.results.Put(c.Name, Verdict{}) // reserves the report position
	func() {
		defer func() {
			if v := recover(); v != nil {
				if _, ok := v.(failNow); !ok {
					panic(v)
				}
				t.aborted = true
			}
		}()
		c.Setup(t)
	}()
	if t.tasks == 0 {
		t.finish()
	}
}

func (r *runner) run(ctx context.Context) error {
	if !r.board.Realtime() {
		return r.exec.Run(ctx)
	}
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return r.board.Clock.Run(gctx) })
	g.Go(func() error {
		defer stop()
		return r.exec.Run(gctx)
	})
	return g.Wait()
}

func (r *runner) record(name string, v Verdict) {
	r.results.Put(name, v)
	if v.Pass {
		fmt.Fprintf(r.out, "test %s ... ok\n", name)
		r.log.Info().Str("case", name).Uint64("tick", uint64(v.Tick)).Log("case passed")
		return
	}
	fmt.Fprintf(r.out, "test %s ... FAILED: %s\n", name, indent(v.Reason))
	r.log.Err().Str("case", name).Uint64("tick", uint64(v.Tick)).Str("reason", v.Reason).Log("case failed")
}

func (r *runner) summarize() Summary {
	sum := Summary{Tick: r.board.Counter.Now()}
	it := r.results.Iterator()
	for it.Next() {
		name, v := it.Key().(string), it.Value().(Verdict)
		sum.Results = append(sum.Results, Result{Name: name, Verdict: v})
		if v.Pass {
			sum.Passed++
		} else {
			sum.Failed++
			sum.Failures = append(sum.Failures, name)
		}
	}

	status := "ok"
	if !sum.OK() {
		status = "FAILED"
	}
	fmt.Fprintf(r.out, "\ntest result: %s. %d passed; %d failed; tick %d; %d spurious wakes\n",
		status, sum.Passed, sum.Failed, sum.Tick, r.exec.Spurious())
	if sum.OK() {
		fmt.Fprintln(r.out, PassPattern)
	} else if len(sum.Failures) > 0 {
		fmt.Fprintf(r.out, "%s %s\n", FailPattern, sum.Failures[0])
	} else {
		fmt.Fprintln(r.out, FailPattern)
	}
	return sum
}

func (r *runner) signal() (irq.SignalID, bool) {
	if r.nextSig >= irq.MaxSignals {
		return 0, false
	}
	id := irq.SignalID(r.nextSig)
	r.nextSig++
	return id, true
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}
