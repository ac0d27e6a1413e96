package logic

import (
	"testing"
	"time"
)

func TestLaneWaitAccruesOnlyWithVehicles(t *testing.T) {
	l := NewLaneState(LaneNorth, 10)

	l.Update(0, 5*time.Second)
	if w := l.Snapshot().Wait; w != 0 {
		t.Fatalf("empty lane must not accrue wait, got %v", w)
	}

	l.Update(3, 0)
	l.Update(0, 2*time.Second)
	if w := l.Snapshot().Wait; w != 2*time.Second {
		t.Fatalf("expected 2s wait, got %v", w)
	}
}

func TestLaneEmptyingClearsWait(t *testing.T) {
	tests := []struct {
		name  string
		drain func(l *LaneState)
	}{
		{"negative delta", func(l *LaneState) { l.Update(-3, 0) }},
		{"over-drain", func(l *LaneState) { l.Update(-100, 0) }},
		{"absolute zero reading", func(l *LaneState) { l.SetCount(0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLaneState(LaneNorth, 10)
			l.Update(3, 0)
			l.Update(0, 30*time.Second)

			tt.drain(l)
			s := l.Snapshot()
			if s.VehicleCount != 0 {
				t.Fatalf("expected empty lane, got %d vehicles", s.VehicleCount)
			}
			if s.Wait != 0 {
				t.Errorf("emptied lane kept stale wait %v", s.Wait)
			}
		})
	}
}

func TestLaneWaitSurvivesPartialDrain(t *testing.T) {
	l := NewLaneState(LaneNorth, 10)
	l.Update(3, 0)
	l.Update(0, 30*time.Second)

	l.Update(-2, 0)
	if w := l.Snapshot().Wait; w != 30*time.Second {
		t.Errorf("partial drain must keep wait, got %v", w)
	}
}

func TestLaneCountClamping(t *testing.T) {
	l := NewLaneState(LaneNorth, 10)

	l.Update(1000, 0)
	if c := l.Snapshot().VehicleCount; c != 100 {
		t.Errorf("expected clamp to 100, got %d", c)
	}
	l.Update(-5000, 0)
	if c := l.Snapshot().VehicleCount; c != 0 {
		t.Errorf("expected clamp to 0, got %d", c)
	}
	l.SetCount(-1)
	if c := l.Snapshot().VehicleCount; c != 0 {
		t.Errorf("negative absolute reading must clamp to 0, got %d", c)
	}
	l.SetCount(500)
	if c := l.Snapshot().VehicleCount; c != 100 {
		t.Errorf("oversized absolute reading must clamp to 100, got %d", c)
	}
}
