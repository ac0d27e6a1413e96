package logic

import "time"

// LaneState tracks the mutable per-lane counters: vehicle count, cumulative
// wait, and emergency presence. It is owned by the Scheduler; the only
// writers are the sensor ingestion path and the phase controller's
// wait-reset hook, all on the scheduling goroutine.
type LaneState struct {
	lane         Lane
	capacity     int
	vehicleCount int
	wait         time.Duration
	emergency    bool
	emergencyAt  time.Time
}

// NewLaneState creates a lane with zero counters.
func NewLaneState(lane Lane, capacity int) *LaneState {
	return &LaneState{lane: lane, capacity: capacity}
}

// Update applies a vehicle count delta and accrues wait time.
// Counts are clamped to [0, 10*capacity] — sensor input is untrusted.
// Wait only accrues while vehicles are actually queued.
func (l *LaneState) Update(delta int, elapsed time.Duration) {
	l.setCount(l.vehicleCount + delta)
	if l.vehicleCount > 0 && elapsed > 0 {
		l.wait += elapsed
	}
}

// SetCount replaces the vehicle count with an absolute sensor reading,
// clamped like Update.
func (l *LaneState) SetCount(n int) {
	l.setCount(n)
}

func (l *LaneState) setCount(n int) {
	max := l.capacity * 10
	if n < 0 {
		n = 0
	}
	if n > max {
		n = max
	}
	l.vehicleCount = n
	// An empty lane has nobody left waiting.
	if l.vehicleCount == 0 {
		l.wait = 0
	}
}

// SetEmergency asserts emergency presence. The first assertion timestamp is
// kept so FIFO ordering between lanes is stable across repeated asserts.
func (l *LaneState) SetEmergency(now time.Time) {
	if l.emergency {
		return
	}
	l.emergency = true
	l.emergencyAt = now
}

// ClearEmergency drops the emergency flag.
func (l *LaneState) ClearEmergency() {
	l.emergency = false
	l.emergencyAt = time.Time{}
}

// ResetWait zeroes the cumulative wait. Called when the lane turns green.
func (l *LaneState) ResetWait() {
	l.wait = 0
}

// Reset restores the lane to its startup state.
func (l *LaneState) Reset() {
	l.vehicleCount = 0
	l.wait = 0
	l.ClearEmergency()
}

// Snapshot returns an immutable copy for scheduling decisions.
func (l *LaneState) Snapshot() LaneSnapshot {
	return LaneSnapshot{
		Lane:         l.lane,
		VehicleCount: l.vehicleCount,
		Capacity:     l.capacity,
		Wait:         l.wait,
		Emergency:    l.emergency,
		EmergencyAt:  l.emergencyAt,
	}
}
