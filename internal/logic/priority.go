package logic

import "time"

// PriorityEngine computes a priority score per lane from its snapshot.
// It holds only configuration and is a pure function of its input:
// monotonic in both vehicle count and wait, never negative, bounded above
// by MaxScore.
type PriorityEngine struct {
	densityWeight float64
	waitWeight    float64
	maxWait       time.Duration
}

// NewPriorityEngine creates an engine with the configured weights.
func NewPriorityEngine(cfg Config) *PriorityEngine {
	return &PriorityEngine{
		densityWeight: cfg.DensityWeight,
		waitWeight:    cfg.WaitWeight,
		maxWait:       cfg.MaxWait,
	}
}

// Score computes the lane's priority:
//
//	density     = min(count/capacity, 1) * 100
//	frustration = min(wait/maxWait, 1)
//	score       = density*densityWeight + frustration*waitWeight
func (e *PriorityEngine) Score(s LaneSnapshot) float64 {
	density := 0.0
	if s.Capacity > 0 {
		density = float64(s.VehicleCount) / float64(s.Capacity) * 100
		if density > 100 {
			density = 100
		}
	}
	frustration := 0.0
	if e.maxWait > 0 {
		frustration = float64(s.Wait) / float64(e.maxWait)
		if frustration > 1 {
			frustration = 1
		}
	}
	return density*e.densityWeight + frustration*e.waitWeight
}

// MaxScore is the upper bound of Score for any input.
func (e *PriorityEngine) MaxScore() float64 {
	return 100*e.densityWeight + e.waitWeight
}
