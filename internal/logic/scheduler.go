package logic

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrInput is wrapped by rejected control/sensor inputs. Input errors are
// recoverable: the event is dropped and the last known state retained.
var ErrInput = errors.New("invalid input")

// Scheduler is the orchestrator: on each tick it snapshots lanes, consults
// the emergency preemptor and priority engine in a fixed rule order
// (emergency, then fairness, then density), drives the phase controller,
// and emits a Decision.
//
// All lane and phase mutation happens inside Tick or the control methods,
// which the owning run loop calls from a single goroutine.
type Scheduler struct {
	cfg       Config
	lanes     map[Lane]*LaneState
	engine    *PriorityEngine
	preemptor *EmergencyPreemptor
	phases    *PhaseController

	paused    bool
	servicing Lane // lane whose emergency service is in progress
	unacked   bool // previous actuator command failed
	lastTick  time.Time
	discharge float64 // fractional vehicles drained from the green lane
}

// NewScheduler validates the configuration and builds a scheduler in the
// startup state (all lanes empty, phase all-red).
func NewScheduler(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:       cfg,
		lanes:     make(map[Lane]*LaneState, len(cfg.Lanes)),
		engine:    NewPriorityEngine(cfg),
		preemptor: NewEmergencyPreemptor(),
	}
	for _, l := range cfg.Lanes {
		s.lanes[l] = NewLaneState(l, cfg.Capacities[l])
	}
	s.phases = NewPhaseController(cfg, func(l Lane) {
		s.lanes[l].ResetWait()
	})
	return s, nil
}

// Config returns the immutable configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Phase returns the current signal phase.
func (s *Scheduler) Phase() Phase {
	return s.phases.Phase()
}

// Colors returns the current per-lane signal colors.
func (s *Scheduler) Colors() map[Lane]Color {
	return s.phases.Colors()
}

// Snapshots returns immutable lane copies in enumeration order.
func (s *Scheduler) Snapshots() []LaneSnapshot {
	snaps := make([]LaneSnapshot, 0, len(s.cfg.Lanes))
	for _, l := range s.cfg.Lanes {
		snaps = append(snaps, s.lanes[l].Snapshot())
	}
	return snaps
}

// Tick runs one scheduling step at the given instant. It returns the
// Decision describing what happened. A non-nil error is a safety violation:
// the controller is already in fail-safe and the loop must stop.
func (s *Scheduler) Tick(now time.Time) (Decision, error) {
	dt := s.step(now)
	if s.paused {
		return s.decision(now, "", ReasonMinGreenHeld), nil
	}

	s.accrue(dt)
	s.preemptor.Observe(s.Snapshots())

	if tr := s.phases.Advance(dt); tr != nil {
		s.onTransition(tr)
	}

	scores := s.scores()
	lane, reason, err := s.apply(scores)
	if err != nil {
		s.phases.Shutdown()
		return s.decision(now, "", ReasonMinGreenHeld), err
	}
	d := s.decision(now, lane, reason)
	d.Scores = scores
	return d, nil
}

// step computes the scaled elapsed time since the previous tick.
func (s *Scheduler) step(now time.Time) time.Duration {
	if s.lastTick.IsZero() {
		s.lastTick = now
		return 0
	}
	dt := now.Sub(s.lastTick)
	s.lastTick = now
	if dt < 0 {
		return 0
	}
	if s.cfg.SimulationSpeed != 1.0 {
		dt = time.Duration(float64(dt) * s.cfg.SimulationSpeed)
	}
	return dt
}

// accrue advances wait time on every non-green lane and drains vehicles
// from the green lane at the configured discharge rate.
func (s *Scheduler) accrue(dt time.Duration) {
	phase := s.phases.Phase()
	for _, l := range s.cfg.Lanes {
		if phase.State == PhaseGreen && l == phase.Lane {
			continue
		}
		s.lanes[l].Update(0, dt)
	}
	if phase.State != PhaseGreen || s.cfg.DischargeRate <= 0 {
		s.discharge = 0
		return
	}
	s.discharge += s.cfg.DischargeRate * dt.Seconds()
	if whole := int(s.discharge); whole > 0 {
		s.lanes[phase.Lane].Update(-whole, 0)
		s.discharge -= float64(whole)
	}
}

// onTransition handles FSM transitions the timers fired. Completing the
// yellow of an emergency-serviced lane releases its queue entry.
func (s *Scheduler) onTransition(tr *Transition) {
	if tr.To == PhaseAllRed && s.servicing != "" && tr.Lane == s.servicing {
		s.preemptor.Complete(s.servicing)
		s.lanes[s.servicing].ClearEmergency()
		s.servicing = ""
	}
}

// scores computes every lane's priority, with the fairness override: a lane
// past the maximum acceptable wait is forced to the top for this tick.
func (s *Scheduler) scores() map[Lane]float64 {
	scores := make(map[Lane]float64, len(s.cfg.Lanes))
	for _, l := range s.cfg.Lanes {
		snap := s.lanes[l].Snapshot()
		if snap.Wait >= s.cfg.MaxWait {
			scores[l] = math.MaxFloat64
			continue
		}
		scores[l] = s.engine.Score(snap)
	}
	return scores
}

// apply runs the ordered rule list and drives the phase controller.
func (s *Scheduler) apply(scores map[Lane]float64) (Lane, Reason, error) {
	phase := s.phases.Phase()

	// Rule 1: emergency preemption.
	if e, ok := s.preemptor.Peek(); ok {
		switch phase.State {
		case PhaseGreen:
			if phase.Lane == e {
				// Already servicing this exact lane.
				s.servicing = e
				return "", ReasonMinGreenHeld, nil
			}
			s.phases.Preempt()
			return e, ReasonEmergency, nil
		case PhaseYellow:
			// Yellow always runs its full course, even under preemption.
			return "", ReasonMinGreenHeld, nil
		case PhaseAllRed:
			if !s.phases.ClearanceElapsed() {
				return "", ReasonMinGreenHeld, nil
			}
			if _, err := s.phases.StartGreen(e, scores[e], true); err != nil {
				return "", "", err
			}
			s.servicing = e
			return e, ReasonEmergency, nil
		default:
			return "", ReasonMinGreenHeld, nil
		}
	}

	// Rules 2+3 only pick a lane from a cleared all-red.
	if phase.State != PhaseAllRed || !s.phases.ClearanceElapsed() {
		return "", ReasonMinGreenHeld, nil
	}

	lane, forced := s.pick(scores)
	if lane == "" {
		// No demand anywhere; stay all-red.
		return "", ReasonMinGreenHeld, nil
	}
	if _, err := s.phases.StartGreen(lane, scores[lane], false); err != nil {
		return "", "", err
	}
	if forced {
		return lane, ReasonFairness, nil
	}
	return lane, ReasonDensity, nil
}

// pick chooses the highest-scoring lane with demand, ties broken by
// enumeration order. Reports whether the winner was a fairness override.
func (s *Scheduler) pick(scores map[Lane]float64) (Lane, bool) {
	var best Lane
	bestScore := 0.0
	for _, l := range s.cfg.Lanes {
		snap := s.lanes[l].Snapshot()
		if snap.VehicleCount == 0 && snap.Wait == 0 {
			continue
		}
		if best == "" || scores[l] > bestScore {
			best = l
			bestScore = scores[l]
		}
	}
	return best, best != "" && bestScore == math.MaxFloat64
}

func (s *Scheduler) decision(now time.Time, lane Lane, reason Reason) Decision {
	d := Decision{
		ID:        uuid.NewString(),
		Timestamp: now,
		Lane:      lane,
		Reason:    reason,
		Colors:    s.phases.Colors(),
		Unacked:   s.unacked,
	}
	s.unacked = false
	return d
}

// Pause freezes the scheduler: ticks keep emitting hold decisions but no
// timers advance and no wait accrues.
func (s *Scheduler) Pause() {
	s.paused = true
}

// Resume unfreezes the scheduler. The pause interval does not count toward
// any phase or wait timer.
func (s *Scheduler) Resume() {
	s.paused = false
}

// Paused reports whether the scheduler is frozen.
func (s *Scheduler) Paused() bool {
	return s.paused
}

// TriggerEmergency asserts an emergency on the lane at the given instant.
func (s *Scheduler) TriggerEmergency(lane Lane, now time.Time) error {
	l, ok := s.lanes[lane]
	if !ok {
		return fmt.Errorf("%w: unknown lane %q", ErrInput, lane)
	}
	l.SetEmergency(now)
	return nil
}

// ClearEmergency deasserts a lane's emergency. A lane currently being
// serviced stays queued until its green+yellow completes.
func (s *Scheduler) ClearEmergency(lane Lane) error {
	l, ok := s.lanes[lane]
	if !ok {
		return fmt.Errorf("%w: unknown lane %q", ErrInput, lane)
	}
	l.ClearEmergency()
	if lane != s.servicing {
		s.preemptor.Remove(lane)
	}
	return nil
}

// InjectTraffic adds (or removes, if negative) vehicles on the lane.
func (s *Scheduler) InjectTraffic(lane Lane, amount int) error {
	l, ok := s.lanes[lane]
	if !ok {
		return fmt.Errorf("%w: unknown lane %q", ErrInput, lane)
	}
	l.Update(amount, 0)
	return nil
}

// SetTraffic replaces a lane's vehicle count with an absolute reading.
func (s *Scheduler) SetTraffic(lane Lane, count int) error {
	l, ok := s.lanes[lane]
	if !ok {
		return fmt.Errorf("%w: unknown lane %q", ErrInput, lane)
	}
	l.SetCount(count)
	return nil
}

// CommandUnacked marks the previous actuator command as failed; the flag is
// surfaced on the next Decision and then cleared.
func (s *Scheduler) CommandUnacked() {
	s.unacked = true
}

// Reset restores the startup state exactly: zero counters, empty emergency
// queue, phase all-red. The tick clock is kept so the next tick's elapsed
// time stays sane.
func (s *Scheduler) Reset() {
	for _, l := range s.lanes {
		l.Reset()
	}
	s.preemptor.Reset()
	s.phases.Reset()
	s.servicing = ""
	s.paused = false
	s.unacked = false
	s.discharge = 0
}

// Shutdown forces the fail-safe flashing-red state.
func (s *Scheduler) Shutdown() {
	s.phases.Shutdown()
}
