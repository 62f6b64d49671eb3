package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Modes of driving the tick interrupt on the host.
const (
	ModeSim      = "sim"      // deterministic, ticks advanced by the idle loop
	ModeRealtime = "realtime" // ticks from a wall-clock ticker goroutine
)

// Config mirrors the YAML configuration file.
type Config struct {
	TickMS       int    `yaml:"tick_ms"`        // 1 (by default), realtime tick period
	BootTick     uint32 `yaml:"boot_tick"`      // 0 (by default), counter value at boot
	Mode         string `yaml:"mode"`           // "sim" (by default)
	MaxTicks     uint32 `yaml:"max_ticks"`      // 1_000_000 (by default), sim watchdog
	ExitWhenDone bool   `yaml:"exit_when_done"` // true (by default), halt once every task finished
	LogLevel     string `yaml:"log_level"`      // "info" (by default)
	TraceCSV     string `yaml:"trace_csv"`      // "" (by default), no trace
}

// DefaultConfig is used for anything the file does not set.
func DefaultConfig() Config {
	return Config{
		TickMS:       1,
		Mode:         ModeSim,
		MaxTicks:     1_000_000,
		ExitWhenDone: true,
		LogLevel:     "info",
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only.
func Load(path string) (Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver is Load with cfg in place of DefaultConfig.
func LoadOver(path string, cfg Config) (Config, error) {
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("sched: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("sched: parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	if c.TickMS <= 0 {
		c.TickMS = 1
	}
	if c.Mode != ModeSim && c.Mode != ModeRealtime {
		c.Mode = ModeSim
	}
	if c.MaxTicks == 0 {
		c.MaxTicks = 1_000_000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
