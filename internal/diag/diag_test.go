package diag

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickexec/internal/sched"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(&buf, logiface.LevelWarning)
	log.Info().Str("k", "v").Log("quiet")
	log.Err().Str("task", "blink").Log("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, `"lvl":"err"`)
	assert.Contains(t, out, `"task":"blink"`)
	assert.Contains(t, out, `"msg":"loud"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestDiscardIsSafe(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		Discard().Err().Str("a", "b").Log("nothing")
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want logiface.Level
	}{
		{"info", logiface.LevelInformational},
		{" DEBUG ", logiface.LevelDebug},
		{"warn", logiface.LevelWarning},
		{"error", logiface.LevelError},
		{"off", logiface.LevelDisabled},
		{"trace", logiface.LevelTrace},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loudest")
	assert.Error(t, err)
}

func TestCSVTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := NewCSVTrace(&buf)
	tr.Observe(sched.StatusEvent{Tick: 5, Kind: sched.StatusSuspend, TaskID: 2, Name: "blink", Reason: sched.TimerDeadline(9)})
	tr.Observe(sched.StatusEvent{Tick: 9, Kind: sched.StatusSleep})
	require.NoError(t, tr.Close())

	assert.Equal(t,
		"tick,event,task_id,name,reason\n"+
			"5,Suspend,2,blink,timer(9)\n"+
			"9,Sleep,0,,none\n",
		buf.String())
}

func TestCreateCSVTrace(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.csv")
	tr, err := CreateCSVTrace(path)
	require.NoError(t, err)
	tr.Observe(sched.StatusEvent{Tick: 1, Kind: sched.StatusFinish, TaskID: 0, Name: "a"})
	require.NoError(t, tr.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tick,event,task_id,name,reason\n1,Finish,0,a,none\n", string(data))

	_, err = CreateCSVTrace(filepath.Join(t.TempDir(), "missing", "trace.csv"))
	assert.Error(t, err)
}

func TestEventLineAndTee(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	obs := Tee(Printer(&a), nil, Printer(&b))
	obs(sched.StatusEvent{Tick: 42, Kind: sched.StatusWake, TaskID: 3, Name: "rx", Reason: sched.ExternalSignal(7)})
	obs(sched.StatusEvent{Tick: 43, Kind: sched.StatusHalt})

	want := "Tick: 0000000042 [   Wake   ] => Task: 03 (rx) signal(7)\n" +
		"Tick: 0000000043 [   Halt   ]\n"
	assert.Equal(t, want, a.String())
	assert.Equal(t, want, b.String())
}
