// Package logic contains the pure scheduling core for the intersection
// signal controller. This package has NO external I/O dependencies (no GPIO,
// MQTT, OS, or time.Sleep). Time advances only through explicit arguments.
package logic

import "time"

// Lane identifies one approach to the intersection.
type Lane string

// Default four-way intersection approaches. The controller works with any
// lane set; enumeration order comes from Config.Lanes.
const (
	LaneNorth Lane = "north"
	LaneEast  Lane = "east"
	LaneSouth Lane = "south"
	LaneWest  Lane = "west"
)

// Color is the signal head state for a single lane.
type Color string

const (
	ColorRed         Color = "RED"
	ColorYellow      Color = "YELLOW"
	ColorGreen       Color = "GREEN"
	ColorFlashingRed Color = "FLASHING_RED"
)

// Reason explains why a tick decided what it decided.
type Reason string

const (
	// ReasonDensity: the lane won on its priority score.
	ReasonDensity Reason = "DENSITY"
	// ReasonFairness: the lane exceeded the maximum acceptable wait and was
	// forced to the front.
	ReasonFairness Reason = "FAIRNESS"
	// ReasonEmergency: an emergency vehicle preempted or was granted green.
	ReasonEmergency Reason = "EMERGENCY"
	// ReasonMinGreenHeld: no change this tick; the controller is holding a
	// phase (running green/yellow/clearance timers, paused, or idle).
	ReasonMinGreenHeld Reason = "MIN_GREEN_HELD"
)

// LaneSnapshot is an immutable copy of a lane's counters, taken once per
// tick so the scheduler never observes a half-updated lane.
type LaneSnapshot struct {
	Lane         Lane
	VehicleCount int
	Capacity     int
	Wait         time.Duration
	Emergency    bool
	EmergencyAt  time.Time
}

// Decision is the immutable record emitted each tick for external
// consumers (dashboard, actuator adapter, MQTT). The core keeps no history.
type Decision struct {
	ID        string
	Timestamp time.Time
	// Lane is the lane acted on this tick, or "" for no change.
	Lane   Lane
	Reason Reason
	// Scores holds every lane's computed priority for this tick, including
	// any fairness override.
	Scores map[Lane]float64
	// Colors is the per-lane signal state after this tick.
	Colors map[Lane]Color
	// Unacked is set when the previous actuator command failed; surfaced so
	// observers know the physical heads may lag the decision.
	Unacked bool
}
