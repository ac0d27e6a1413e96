package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/signal-controller/internal/logic"
)

var trackerStart = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func testDecision(lane logic.Lane, reason logic.Reason) logic.Decision {
	return logic.Decision{
		ID:     "d1",
		Lane:   lane,
		Reason: reason,
		Scores: map[logic.Lane]float64{logic.LaneNorth: 54},
		Colors: map[logic.Lane]logic.Color{
			logic.LaneNorth: logic.ColorGreen,
			logic.LaneEast:  logic.ColorRed,
		},
	}
}

func testLanes() []logic.LaneSnapshot {
	return []logic.LaneSnapshot{
		{Lane: logic.LaneNorth, VehicleCount: 9, Capacity: 10, Wait: 12 * time.Second},
		{Lane: logic.LaneEast, VehicleCount: 1, Capacity: 10, Emergency: true},
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(trackerStart, Config{Broker: "tcp://localhost:1883"})

	phase := logic.Phase{State: logic.PhaseGreen, Lane: logic.LaneNorth}
	tr.Update(phase, false, testLanes(), testDecision(logic.LaneNorth, logic.ReasonDensity))

	snap := tr.Snapshot()
	if snap.Phase != logic.PhaseGreen || snap.ActiveLane != logic.LaneNorth {
		t.Errorf("phase not tracked: %s(%s)", snap.Phase, snap.ActiveLane)
	}
	if len(snap.Lanes) != 2 {
		t.Fatalf("expected 2 lanes, got %d", len(snap.Lanes))
	}
	north := snap.Lanes[0]
	if north.Color != logic.ColorGreen || north.Vehicles != 9 || north.WaitSeconds != 12 || north.Score != 54 {
		t.Errorf("north lane status wrong: %+v", north)
	}
	if !snap.Lanes[1].Emergency {
		t.Error("east emergency flag lost")
	}
	if snap.LastReason != logic.ReasonDensity {
		t.Errorf("expected DENSITY, got %s", snap.LastReason)
	}
	if snap.StartTime != trackerStart {
		t.Errorf("start time changed: %v", snap.StartTime)
	}
}

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker(trackerStart, Config{})
	phase := logic.Phase{State: logic.PhaseAllRed}
	lanes := testLanes()

	tr.Update(phase, false, lanes, testDecision(logic.LaneNorth, logic.ReasonDensity))
	tr.Update(phase, false, lanes, testDecision(logic.LaneEast, logic.ReasonEmergency))
	tr.Update(phase, false, lanes, testDecision(logic.LaneWest, logic.ReasonFairness))
	tr.Update(phase, false, lanes, testDecision("", logic.ReasonMinGreenHeld))
	tr.Update(phase, false, lanes, testDecision("", logic.ReasonMinGreenHeld))
	tr.AddInputError()
	tr.AddActuatorError()
	tr.AddActuatorError()

	c := tr.Snapshot().Counts
	if c.Density != 1 || c.Emergency != 1 || c.Fairness != 1 || c.Held != 2 {
		t.Errorf("decision counts wrong: %+v", c)
	}
	if c.InputErrors != 1 || c.ActuatorErrors != 2 {
		t.Errorf("error counts wrong: %+v", c)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := NewTracker(trackerStart, Config{})
	tr.Update(logic.Phase{State: logic.PhaseAllRed}, false, testLanes(), testDecision("", logic.ReasonMinGreenHeld))

	snap := tr.Snapshot()
	snap.Lanes[0].Vehicles = 999

	if tr.Snapshot().Lanes[0].Vehicles == 999 {
		t.Error("snapshot shares lane slice with tracker")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(trackerStart, Config{})
	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected connected")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected disconnected")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := NewTracker(trackerStart, Config{
		TickMs:          100,
		MinGreenMs:      15000,
		MaxGreenMs:      60000,
		Broker:          "tcp://localhost:1883",
		HTTPAddr:        ":8080",
		SimulationSpeed: 1.0,
	})
	tr.Update(
		logic.Phase{State: logic.PhaseGreen, Lane: logic.LaneNorth},
		false,
		testLanes(),
		testDecision(logic.LaneNorth, logic.ReasonDensity),
	)
	tr.SetMQTTConnected(true)

	var got StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &got); err != nil {
		t.Fatalf("status JSON does not parse: %v", err)
	}
	s := got.Status
	if s.Phase != "GREEN" || s.ActiveLane != "north" {
		t.Errorf("phase fields wrong: %s(%s)", s.Phase, s.ActiveLane)
	}
	if len(s.Lanes) != 2 || s.Lanes[0].Lane != "north" || s.Lanes[0].Color != "GREEN" {
		t.Errorf("lanes wrong: %+v", s.Lanes)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("mqtt block wrong: %+v", s.MQTT)
	}
	if s.Config.MinGreenMs != 15000 || s.Config.HTTPAddr != ":8080" {
		t.Errorf("config block wrong: %+v", s.Config)
	}
	if s.Counts.Density != 1 {
		t.Errorf("counts wrong: %+v", s.Counts)
	}
	if s.Event != "" {
		t.Errorf("plain status must not carry an event, got %q", s.Event)
	}
}

func TestFormatJSONEmptyTracker(t *testing.T) {
	tr := NewTracker(trackerStart, Config{})

	var got StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &got); err != nil {
		t.Fatalf("status JSON does not parse: %v", err)
	}
	if got.Status.Phase != "UNKNOWN" {
		t.Errorf("expected UNKNOWN phase before first tick, got %q", got.Status.Phase)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(trackerStart, Config{})
	tr.Update(
		logic.Phase{State: logic.PhaseAllRed},
		false,
		testLanes(),
		testDecision("", logic.ReasonMinGreenHeld),
	)

	var got StatusJSON
	raw := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("event JSON does not parse: %v", err)
	}
	if got.Status.Event != "SHUTDOWN" || got.Status.Reason != "SIGTERM" {
		t.Errorf("event fields wrong: %+v", got.Status)
	}
	if got.Status.Phase != "ALL_RED" {
		t.Errorf("event must embed the status snapshot, got phase %q", got.Status.Phase)
	}
}

func TestUptime(t *testing.T) {
	snap := Snapshot{StartTime: trackerStart, Now: trackerStart.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("expected 90s uptime, got %v", snap.Uptime())
	}
}
