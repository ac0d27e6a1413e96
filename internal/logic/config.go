package logic

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfig is wrapped by every configuration validation failure.
// Config errors are fatal at startup: the controller refuses to run.
var ErrConfig = errors.New("invalid config")

// Config holds the static intersection configuration. It is loaded once at
// startup and immutable thereafter; changing it requires a restart.
type Config struct {
	// Lanes in enumeration order. Order is significant: score ties are
	// broken by position in this slice.
	Lanes []Lane
	// Capacities maps each lane to its vehicle capacity.
	Capacities map[Lane]int

	// Priority weights.
	DensityWeight float64
	WaitWeight    float64

	// MaxWait is the maximum acceptable wait before the fairness override
	// forces a lane to the front of scheduling.
	MaxWait time.Duration

	// Phase durations.
	MinGreen        time.Duration
	MaxGreen        time.Duration
	BaseGreen       time.Duration
	Yellow          time.Duration
	AllRedClearance time.Duration
	EmergencyGreen  time.Duration

	// Tick is the scheduling loop interval.
	Tick time.Duration

	// DischargeRate is how many vehicles per second clear a green lane.
	DischargeRate float64

	// SimulationSpeed multiplies elapsed time each tick. 1.0 = real time.
	SimulationSpeed float64
}

// DefaultConfig returns the standard four-way intersection configuration.
func DefaultConfig() Config {
	lanes := []Lane{LaneNorth, LaneEast, LaneSouth, LaneWest}
	caps := make(map[Lane]int, len(lanes))
	for _, l := range lanes {
		caps[l] = 10
	}
	return Config{
		Lanes:           lanes,
		Capacities:      caps,
		DensityWeight:   0.6,
		WaitWeight:      0.4,
		MaxWait:         120 * time.Second,
		MinGreen:        15 * time.Second,
		MaxGreen:        60 * time.Second,
		BaseGreen:       20 * time.Second,
		Yellow:          3 * time.Second,
		AllRedClearance: 2 * time.Second,
		EmergencyGreen:  20 * time.Second,
		Tick:            100 * time.Millisecond,
		DischargeRate:   0.5,
		SimulationSpeed: 1.0,
	}
}

// Validate checks the configuration. All returned errors wrap ErrConfig.
func (c Config) Validate() error {
	if len(c.Lanes) < 2 {
		return fmt.Errorf("%w: need at least 2 lanes, have %d", ErrConfig, len(c.Lanes))
	}
	seen := make(map[Lane]bool, len(c.Lanes))
	for _, l := range c.Lanes {
		if l == "" {
			return fmt.Errorf("%w: empty lane name", ErrConfig)
		}
		if seen[l] {
			return fmt.Errorf("%w: duplicate lane %q", ErrConfig, l)
		}
		seen[l] = true
		cap, ok := c.Capacities[l]
		if !ok {
			return fmt.Errorf("%w: lane %q has no capacity", ErrConfig, l)
		}
		if cap <= 0 {
			return fmt.Errorf("%w: lane %q capacity must be positive, got %d", ErrConfig, l, cap)
		}
	}
	if c.DensityWeight < 0 || c.WaitWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative (density=%v wait=%v)", ErrConfig, c.DensityWeight, c.WaitWeight)
	}
	if c.DensityWeight+c.WaitWeight <= 0 {
		return fmt.Errorf("%w: weights must not both be zero", ErrConfig)
	}
	if c.MinGreen <= 0 || c.MaxGreen <= 0 || c.Yellow <= 0 || c.AllRedClearance <= 0 || c.EmergencyGreen <= 0 {
		return fmt.Errorf("%w: phase durations must be positive", ErrConfig)
	}
	if c.MinGreen > c.MaxGreen {
		return fmt.Errorf("%w: min green %v exceeds max green %v", ErrConfig, c.MinGreen, c.MaxGreen)
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("%w: max wait must be positive, got %v", ErrConfig, c.MaxWait)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %v", ErrConfig, c.Tick)
	}
	if c.DischargeRate < 0 {
		return fmt.Errorf("%w: discharge rate must be non-negative, got %v", ErrConfig, c.DischargeRate)
	}
	if c.SimulationSpeed <= 0 {
		return fmt.Errorf("%w: simulation speed must be positive, got %v", ErrConfig, c.SimulationSpeed)
	}
	return nil
}
