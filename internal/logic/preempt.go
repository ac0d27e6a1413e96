package logic

import "sort"

// EmergencyPreemptor tracks asserted emergencies in a FIFO queue keyed by
// assertion timestamp. An emergency arriving mid-phase never jumps ahead of
// one already queued; later emergencies wait their turn rather than starve.
type EmergencyPreemptor struct {
	queue  []Lane
	queued map[Lane]bool
}

// NewEmergencyPreemptor creates an empty preemption queue.
func NewEmergencyPreemptor() *EmergencyPreemptor {
	return &EmergencyPreemptor{queued: make(map[Lane]bool)}
}

// Observe enqueues any newly asserted lanes. Snapshots must be in
// enumeration order; lanes asserted at the same instant enqueue in that
// order. Already-queued lanes keep their position.
func (p *EmergencyPreemptor) Observe(snaps []LaneSnapshot) {
	var fresh []LaneSnapshot
	for _, s := range snaps {
		if s.Emergency && !p.queued[s.Lane] {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 {
		return
	}
	// Earliest assertion first; SliceStable keeps enumeration order on ties.
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].EmergencyAt.Before(fresh[j].EmergencyAt)
	})
	for _, s := range fresh {
		p.queue = append(p.queue, s.Lane)
		p.queued[s.Lane] = true
	}
}

// Peek returns the lane whose emergency should be serviced next.
func (p *EmergencyPreemptor) Peek() (Lane, bool) {
	if len(p.queue) == 0 {
		return "", false
	}
	return p.queue[0], true
}

// Complete removes a lane after its emergency green+yellow service finished.
func (p *EmergencyPreemptor) Complete(lane Lane) {
	p.Remove(lane)
}

// Remove drops a lane from the queue, e.g. when a sensor deasserts the
// emergency before it was serviced.
func (p *EmergencyPreemptor) Remove(lane Lane) {
	if !p.queued[lane] {
		return
	}
	delete(p.queued, lane)
	for i, l := range p.queue {
		if l == lane {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return
		}
	}
}

// Pending reports how many emergencies are queued.
func (p *EmergencyPreemptor) Pending() int {
	return len(p.queue)
}

// Reset clears the queue.
func (p *EmergencyPreemptor) Reset() {
	p.queue = nil
	p.queued = make(map[Lane]bool)
}
