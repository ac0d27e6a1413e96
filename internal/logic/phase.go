package logic

import (
	"errors"
	"fmt"
	"time"
)

// ErrSafetyViolation is wrapped when an internal invariant is about to be
// broken (e.g. a green requested while another lane is not yet red).
// It is fatal at runtime: the controller drops to fail-safe.
var ErrSafetyViolation = errors.New("safety violation")

// PhaseState names the controller's FSM states.
type PhaseState string

const (
	PhaseAllRed   PhaseState = "ALL_RED"
	PhaseGreen    PhaseState = "GREEN"
	PhaseYellow   PhaseState = "YELLOW"
	PhaseFailSafe PhaseState = "FAIL_SAFE"
)

// Phase is the intersection-wide signal state: which lane (if any) holds
// right-of-way, how long the state has run, and the planned green length.
type Phase struct {
	State   PhaseState
	Lane    Lane // active lane for GREEN/YELLOW, "" otherwise
	Elapsed time.Duration
	Planned time.Duration // GREEN only
}

// Transition records a state change fired by Advance.
type Transition struct {
	From PhaseState
	To   PhaseState
	Lane Lane // the lane leaving green/yellow, if any
}

// PhaseController owns the signal phase FSM. Timing is pure: it advances
// only through Advance(elapsed), so tests and pause/simulation-speed all
// work without a wall clock.
//
// Invariants: at most one lane non-red; a yellow always follows a green for
// the same lane; a lane becomes green only from all-red after the clearance
// interval; yellow is never shortened, even under preemption.
type PhaseController struct {
	cfg   Config
	phase Phase
	// onGreen is called with the lane entering green, so its wait resets.
	onGreen func(Lane)
}

// NewPhaseController creates a controller in the all-red state. The
// clearance timer starts satisfied so the first green is not delayed.
func NewPhaseController(cfg Config, onGreen func(Lane)) *PhaseController {
	return &PhaseController{
		cfg:     cfg,
		phase:   Phase{State: PhaseAllRed, Elapsed: cfg.AllRedClearance},
		onGreen: onGreen,
	}
}

// Phase returns the current phase value.
func (c *PhaseController) Phase() Phase {
	return c.phase
}

// ClearanceElapsed reports whether the mandatory all-red interval has run.
func (c *PhaseController) ClearanceElapsed() bool {
	return c.phase.State == PhaseAllRed && c.phase.Elapsed >= c.cfg.AllRedClearance
}

// Advance accrues elapsed time and fires any due transition. At most one
// transition fires per call; a 3s yellow never collapses into the same tick
// as the green that preceded it.
func (c *PhaseController) Advance(elapsed time.Duration) *Transition {
	if elapsed < 0 {
		elapsed = 0
	}
	c.phase.Elapsed += elapsed

	switch c.phase.State {
	case PhaseGreen:
		if c.phase.Elapsed >= c.phase.Planned {
			return c.enterYellow()
		}
	case PhaseYellow:
		if c.phase.Elapsed >= c.cfg.Yellow {
			lane := c.phase.Lane
			c.phase = Phase{State: PhaseAllRed}
			return &Transition{From: PhaseYellow, To: PhaseAllRed, Lane: lane}
		}
	}
	return nil
}

// StartGreen grants the lane a green phase. Only legal from all-red with
// the clearance interval elapsed; anything else is a safety violation.
// Emergency greens use the fixed configured duration; normal greens get
// clamp(baseGreen + bonus(score), minGreen, maxGreen).
func (c *PhaseController) StartGreen(lane Lane, score float64, emergency bool) (time.Duration, error) {
	if c.phase.State != PhaseAllRed {
		return 0, fmt.Errorf("%w: green for %q requested during %s(%s)",
			ErrSafetyViolation, lane, c.phase.State, c.phase.Lane)
	}
	if c.phase.Elapsed < c.cfg.AllRedClearance {
		return 0, fmt.Errorf("%w: green for %q requested %v into %v clearance",
			ErrSafetyViolation, lane, c.phase.Elapsed, c.cfg.AllRedClearance)
	}

	planned := c.PlannedGreen(score)
	if emergency {
		planned = c.cfg.EmergencyGreen
	}
	c.phase = Phase{State: PhaseGreen, Lane: lane, Planned: planned}
	if c.onGreen != nil {
		c.onGreen(lane)
	}
	return planned, nil
}

// PlannedGreen maps a priority score to a green duration: the bonus scales
// linearly with score up to the configured maximum, then the result is
// clamped to [minGreen, maxGreen].
func (c *PhaseController) PlannedGreen(score float64) time.Duration {
	maxScore := 100*c.cfg.DensityWeight + c.cfg.WaitWeight
	frac := 0.0
	if maxScore > 0 {
		frac = score / maxScore
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	bonus := time.Duration(frac * float64(c.cfg.MaxGreen-c.cfg.BaseGreen))
	planned := c.cfg.BaseGreen + bonus
	if planned < c.cfg.MinGreen {
		planned = c.cfg.MinGreen
	}
	if planned > c.cfg.MaxGreen {
		planned = c.cfg.MaxGreen
	}
	return planned
}

// Preempt ends the current green immediately by advancing it into its
// mandatory yellow. Reports whether a phase change happened. Yellow and
// all-red are never cut short.
func (c *PhaseController) Preempt() bool {
	if c.phase.State != PhaseGreen {
		return false
	}
	c.enterYellow()
	return true
}

func (c *PhaseController) enterYellow() *Transition {
	lane := c.phase.Lane
	c.phase = Phase{State: PhaseYellow, Lane: lane}
	return &Transition{From: PhaseGreen, To: PhaseYellow, Lane: lane}
}

// Shutdown forces the fail-safe flashing-red state from any source state.
func (c *PhaseController) Shutdown() {
	c.phase = Phase{State: PhaseFailSafe}
}

// Reset restores the startup all-red state (clearance satisfied).
func (c *PhaseController) Reset() {
	c.phase = Phase{State: PhaseAllRed, Elapsed: c.cfg.AllRedClearance}
}

// Colors returns the per-lane signal colors for the current phase.
func (c *PhaseController) Colors() map[Lane]Color {
	colors := make(map[Lane]Color, len(c.cfg.Lanes))
	for _, l := range c.cfg.Lanes {
		switch {
		case c.phase.State == PhaseFailSafe:
			colors[l] = ColorFlashingRed
		case c.phase.State == PhaseGreen && l == c.phase.Lane:
			colors[l] = ColorGreen
		case c.phase.State == PhaseYellow && l == c.phase.Lane:
			colors[l] = ColorYellow
		default:
			colors[l] = ColorRed
		}
	}
	return colors
}
