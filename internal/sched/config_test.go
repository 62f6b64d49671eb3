package sched

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
tick_ms: 10
boot_tick: 4294967290
mode: realtime
exit_when_done: false
log_level: debug
trace_csv: trace.csv
`))
	require.NoError(t, err)
	assert.Equal(t, Config{
		TickMS:       10,
		BootTick:     4294967290,
		Mode:         ModeRealtime,
		MaxTicks:     1_000_000,
		ExitWhenDone: false,
		LogLevel:     "debug",
		TraceCSV:     "trace.csv",
	}, cfg)
}

func TestLoadClampsNonsense(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
tick_ms: -3
mode: turbo
max_ticks: 0
log_level: ""
`))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.TickMS)
	assert.Equal(t, ModeSim, cfg.Mode)
	assert.Equal(t, uint32(1_000_000), cfg.MaxTicks)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "tick_ms: [1, 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sched: parse config")
}
