package suite

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickexec/internal/diag"
	"tickexec/internal/job"
	"tickexec/internal/sched"
)

func simConfig() sched.Config {
	cfg := DefaultConfig()
	cfg.MaxTicks = 10_000
	return cfg
}

func TestBatteryPassesInSimulation(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sum, err := Run(context.Background(), simConfig(), Cases(), &out, diag.Discard())
	require.NoError(t, err)

	report := out.String()
	assert.True(t, sum.OK(), report)
	assert.Equal(t, len(Cases()), sum.Passed)
	assert.Zero(t, sum.Failed)
	assert.Empty(t, sum.Failures)
	for _, c := range Cases() {
		assert.Contains(t, report, "test "+c.Name+" ... ok\n")
	}
	assert.True(t, strings.HasSuffix(report, PassPattern+"\n"), report)
}

func TestBatteryPassesInRealtime(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the wall clock")
	}
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = sched.ModeRealtime
	cfg.TickMS = 1

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	sum, err := Run(ctx, cfg, Cases(), &out, diag.Discard())
	require.NoError(t, err)
	assert.True(t, sum.OK(), out.String())
	assert.Contains(t, out.String(), PassPattern)
}

func TestFailuresAreAggregated(t *testing.T) {
	t.Parallel()

	cases := []Case{
		{Name: "passes", Setup: func(t *T) {
			t.Spawn("x", sched.TaskFunc(func(*sched.Context) sched.Poll { return sched.Done }))
		}},
		{Name: "fails", Setup: func(t *T) {
			t.Spawn("x", sched.NewStages(
				job.Sleep(3),
				job.Do(func(*sched.Context) { t.Errorf("boom %d", 1) }),
			))
		}},
		{Name: "asserts", Setup: func(t *T) {
			t.Spawn("x", sched.NewStages(
				job.Do(func(*sched.Context) { assert.Equal(t, 1, 2) }),
			))
		}},
		{Name: "stuck", Setup: func(t *T) {
			t.Spawn("x", sched.NewStages(job.WaitSignal(t.Signal())))
		}},
	}

	var out bytes.Buffer
	sum, err := Run(context.Background(), simConfig(), cases, &out, diag.Discard())
	require.NoError(t, err)

	report := out.String()
	assert.False(t, sum.OK())
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 3, sum.Failed)
	assert.Equal(t, []string{"fails", "asserts", "stuck"}, sum.Failures)

	names := make([]string, 0, len(sum.Results))
	for _, r := range sum.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"passes", "fails", "asserts", "stuck"}, names, "results are kept in registration order")

	assert.Contains(t, report, "test passes ... ok\n")
	assert.Contains(t, report, "test fails ... FAILED: boom 1\n")
	assert.Contains(t, report, "Not equal")
	assert.Contains(t, report, "test stuck ... FAILED: did not finish (0 of 1 tasks done)")
	assert.Contains(t, report, "1 passed; 3 failed")
	assert.True(t, strings.HasSuffix(report, FailPattern+" fails\n"), report)
}

func TestFatalfStopsCase(t *testing.T) {
	t.Parallel()

	verified := false
	cases := []Case{
		{Name: "setup", Setup: func(t *T) {
			t.Fatalf("no %s", "hardware")
		}},
		{Name: "task", Setup: func(t *T) {
			t.Spawn("sleeper", sched.NewStages(job.Sleep(20), job.Do(func(*sched.Context) {})))
			t.Spawn("quitter", sched.NewStages(
				job.Sleep(2),
				job.Do(func(*sched.Context) { t.Fatalf("gave up") }),
			))
			t.Verify(func(*T) { verified = true })
		}},
	}

	var out bytes.Buffer
	sum, err := Run(context.Background(), simConfig(), cases, &out, diag.Discard())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Failed)
	assert.False(t, verified, "verify must not run after Fatalf")
	require.Len(t, sum.Results, 2)
	assert.Equal(t, "no hardware", sum.Results[0].Reason)
	assert.Equal(t, "gave up", sum.Results[1].Reason)
}

func TestVerifyRunsAfterTasks(t *testing.T) {
	t.Parallel()

	var order []string
	cases := []Case{{Name: "verify", Setup: func(t *T) {
		t.Spawn("a", sched.NewStages(job.Sleep(5), job.Do(func(*sched.Context) { order = append(order, "a") })))
		t.Spawn("b", sched.NewStages(job.Sleep(1), job.Do(func(*sched.Context) { order = append(order, "b") })))
		t.Verify(func(*T) { order = append(order, "verify") })
	}}}

	var out bytes.Buffer
	sum, err := Run(context.Background(), simConfig(), cases, &out, diag.Discard())
	require.NoError(t, err)
	assert.True(t, sum.OK())
	assert.Equal(t, []string{"b", "a", "verify"}, order)
}

func TestRunRejectsBadCases(t *testing.T) {
	t.Parallel()

	noop := func(*T) {}
	_, err := Run(context.Background(), simConfig(), []Case{{Name: "x", Setup: noop}, {Name: "x", Setup: noop}}, &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, `duplicate case "x"`)

	_, err = Run(context.Background(), simConfig(), []Case{{Name: "", Setup: noop}}, &bytes.Buffer{}, nil)
	assert.Error(t, err)
}
