package logic

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"one lane", func(c *Config) { c.Lanes = []Lane{LaneNorth} }},
		{"empty lane name", func(c *Config) { c.Lanes = append(c.Lanes, "") }},
		{"duplicate lane", func(c *Config) { c.Lanes = append(c.Lanes, LaneNorth) }},
		{"missing capacity", func(c *Config) { delete(c.Capacities, LaneEast) }},
		{"zero capacity", func(c *Config) { c.Capacities[LaneEast] = 0 }},
		{"negative density weight", func(c *Config) { c.DensityWeight = -0.1 }},
		{"negative wait weight", func(c *Config) { c.WaitWeight = -1 }},
		{"zero weights", func(c *Config) { c.DensityWeight = 0; c.WaitWeight = 0 }},
		{"zero min green", func(c *Config) { c.MinGreen = 0 }},
		{"zero yellow", func(c *Config) { c.Yellow = 0 }},
		{"zero clearance", func(c *Config) { c.AllRedClearance = 0 }},
		{"zero emergency green", func(c *Config) { c.EmergencyGreen = 0 }},
		{"min green above max", func(c *Config) { c.MinGreen = 61 * time.Second }},
		{"zero max wait", func(c *Config) { c.MaxWait = 0 }},
		{"zero tick", func(c *Config) { c.Tick = 0 }},
		{"negative discharge", func(c *Config) { c.DischargeRate = -1 }},
		{"zero simulation speed", func(c *Config) { c.SimulationSpeed = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error should wrap ErrConfig, got %v", err)
			}
		})
	}
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinGreen = cfg.MaxGreen + time.Second
	if _, err := NewScheduler(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
