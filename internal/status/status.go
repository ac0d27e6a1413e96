// Package status provides a thread-safe status tracker for the
// signal-controller daemon. It is written by the scheduling loop and read
// by HTTP handlers; readers never block the loop.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/signal-controller/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs          int64
	MinGreenMs      int64
	MaxGreenMs      int64
	YellowMs        int64
	ClearanceMs     int64
	EmergencyMs     int64
	MaxWaitMs       int64
	HeartbeatMs     int64
	DensityWeight   float64
	WaitWeight      float64
	SimulationSpeed float64
	Broker          string
	HTTPAddr        string
	Headless        bool
}

// LaneStatus is the displayed state of one lane.
type LaneStatus struct {
	Lane        logic.Lane
	Color       logic.Color
	Vehicles    int
	Capacity    int
	WaitSeconds float64
	Emergency   bool
	Score       float64
}

// Counts aggregates decisions by reason since startup.
type Counts struct {
	Density   int
	Fairness  int
	Emergency int
	Held      int

	InputErrors    int
	ActuatorErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Phase         logic.PhaseState
	ActiveLane    logic.Lane
	Paused        bool
	Lanes         []LaneStatus
	Counts        Counts
	LastReason    logic.Reason
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the result of a tick: phase, lane states, and the
// decision that was made. Called from the run loop on every tick.
func (t *Tracker) Update(phase logic.Phase, paused bool, snaps []logic.LaneSnapshot, d logic.Decision) {
	lanes := make([]LaneStatus, 0, len(snaps))
	for _, s := range snaps {
		lanes = append(lanes, LaneStatus{
			Lane:        s.Lane,
			Color:       d.Colors[s.Lane],
			Vehicles:    s.VehicleCount,
			Capacity:    s.Capacity,
			WaitSeconds: s.Wait.Seconds(),
			Emergency:   s.Emergency,
			Score:       d.Scores[s.Lane],
		})
	}

	t.mu.Lock()
	t.snap.Phase = phase.State
	t.snap.ActiveLane = phase.Lane
	t.snap.Paused = paused
	t.snap.Lanes = lanes
	t.snap.LastReason = d.Reason
	switch d.Reason {
	case logic.ReasonDensity:
		t.snap.Counts.Density++
	case logic.ReasonFairness:
		t.snap.Counts.Fairness++
	case logic.ReasonEmergency:
		t.snap.Counts.Emergency++
	default:
		t.snap.Counts.Held++
	}
	t.mu.Unlock()
}

// AddInputError counts a rejected sensor/control event.
func (t *Tracker) AddInputError() {
	t.mu.Lock()
	t.snap.Counts.InputErrors++
	t.mu.Unlock()
}

// AddActuatorError counts a failed actuator command.
func (t *Tracker) AddActuatorError() {
	t.mu.Lock()
	t.snap.Counts.ActuatorErrors++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Lanes = append([]LaneStatus(nil), t.snap.Lanes...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
