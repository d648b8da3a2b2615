package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// TaskConfig describes one registry slot.
type TaskConfig struct {
	ID       TaskID `yaml:"id"`
	Priority uint32 `yaml:"priority"`
}

// CommandConfig is one scripted lifecycle command.
type CommandConfig struct {
	At      uint64 `yaml:"at"`      // virtual execution time threshold
	Command string `yaml:"command"` // suspend, resume or terminate
	Task    TaskID `yaml:"task"`
}

// Config mirrors config.yml
type Config struct {
	TickUS       int             `yaml:"tick_us"`       // 1000 (by default)
	SwitchStep   uint64          `yaml:"switch_step"`   // 1000 (by default)
	ExecutionCap uint64          `yaml:"execution_cap"` // 120000 (by default)
	HoldMS       int             `yaml:"hold_ms"`       // 300 (by default)
	IdleMS       int             `yaml:"idle_ms"`       // 1000 (by default)
	Permits      uint32          `yaml:"permits"`       // 1 (by default)
	Selection    string          `yaml:"selection"`     // minimum | legacy
	Realtime     bool            `yaml:"realtime"`
	History      int             `yaml:"history"` // events kept in memory
	Tasks        []TaskConfig    `yaml:"tasks"`
	Scenario     []CommandConfig `yaml:"scenario"`
}

// DefaultConfig reproduces the two-task blink demo.
func DefaultConfig() Config {
	return Config{
		TickUS:       1000,
		SwitchStep:   1000,
		ExecutionCap: 120000,
		HoldMS:       300,
		IdleMS:       1000,
		Permits:      1,
		Selection:    string(PolicyMinimum),
		History:      256,
		Tasks: []TaskConfig{
			{ID: 1, Priority: 3},
			{ID: 2, Priority: 2},
		},
		Scenario: []CommandConfig{
			{At: 30000, Command: "suspend", Task: 1},
			{At: 60000, Command: "resume", Task: 1},
			{At: 90000, Command: "terminate", Task: 1},
		},
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file = defaults only
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	// sanity clamps
	if cfg.TickUS <= 0 {
		cfg.TickUS = 1000
	}
	if cfg.SwitchStep == 0 {
		cfg.SwitchStep = 1000
	}
	if cfg.HoldMS < 0 {
		cfg.HoldMS = 0
	}
	if cfg.IdleMS < 0 {
		cfg.IdleMS = 0
	}
	if cfg.Permits == 0 {
		cfg.Permits = 1
	}
	if cfg.History <= 0 {
		cfg.History = 256
	}
	if _, err := ParsePolicy(cfg.Selection); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// TickPeriod is the interval between tick interrupts.
func (c Config) TickPeriod() time.Duration { return time.Duration(c.TickUS) * time.Microsecond }

// Hold is how long the actuator stays in each level.
func (c Config) Hold() time.Duration { return time.Duration(c.HoldMS) * time.Millisecond }

// Idle is the wait a suspended or terminated task performs when dispatched.
func (c Config) Idle() time.Duration { return time.Duration(c.IdleMS) * time.Millisecond }
