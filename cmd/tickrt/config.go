package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// duration wraps time.Duration so scenario files can use "250ms" style
// values.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type scenarioConfig struct {
	Runtime runtimeConfig `toml:"runtime"`
	Demo    demoConfig    `toml:"demo"`
	Timers  []timerConfig `toml:"timers"`
}

type runtimeConfig struct {
	TickPeriod duration `toml:"tick_period"`
}

type demoConfig struct {
	Duration duration `toml:"duration"`
	Enqueue  int      `toml:"enqueue"`
}

type timerConfig struct {
	Label  string   `toml:"label"`
	Delay  duration `toml:"delay"`
	Repeat int      `toml:"repeat"`
}

func defaultScenario() scenarioConfig {
	return scenarioConfig{
		Runtime: runtimeConfig{TickPeriod: duration{time.Millisecond}},
		Demo: demoConfig{
			Duration: duration{2 * time.Second},
			Enqueue:  3,
		},
		Timers: []timerConfig{
			{Label: "heartbeat", Delay: duration{250 * time.Millisecond}, Repeat: 4},
			{Label: "slow", Delay: duration{700 * time.Millisecond}},
			{Label: "fast", Delay: duration{100 * time.Millisecond}, Repeat: 8},
		},
	}
}

// loadScenario reads a scenario TOML file, or falls back to the built-in
// scenario when path is empty.
func loadScenario(path string) (scenarioConfig, error) {
	cfg := defaultScenario()
	if path == "" {
		return cfg, nil
	}

	cfg.Timers = nil
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load scenario %s: unknown keys %v", path, undecoded)
	}

	if cfg.Runtime.TickPeriod.Duration <= 0 {
		return cfg, fmt.Errorf("load scenario %s: runtime.tick_period must be positive", path)
	}
	if cfg.Demo.Duration.Duration <= 0 {
		return cfg, fmt.Errorf("load scenario %s: demo.duration must be positive", path)
	}
	for i, tc := range cfg.Timers {
		if tc.Label == "" {
			return cfg, fmt.Errorf("load scenario %s: timers[%d] needs a label", path, i)
		}
		if tc.Delay.Duration <= 0 {
			return cfg, fmt.Errorf("load scenario %s: timer %q delay must be positive", path, tc.Label)
		}
		if tc.Repeat < 0 {
			return cfg, fmt.Errorf("load scenario %s: timer %q repeat must not be negative", path, tc.Label)
		}
	}
	return cfg, nil
}
