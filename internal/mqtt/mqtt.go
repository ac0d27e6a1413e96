// Package mqtt publishes scheduler decisions and consumes sensor events,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/signal-controller/internal/logic"
)

// TopicDecisions carries one message per scheduling decision.
const TopicDecisions = "traffic/intersection/decisions"

// TopicSystem carries system lifecycle events.
const TopicSystem = "traffic/intersection/system"

// TopicSensors is the inbound topic for vehicle/emergency sensor events.
const TopicSensors = "traffic/intersection/sensors"

// Publisher publishes controller output to MQTT.
type Publisher interface {
	// PublishDecision sends a scheduling decision to the broker.
	// Returns error if publishing fails (must not crash the process).
	PublishDecision(d logic.Decision) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown,
// heartbeat, safety violation).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SAFETY_VIOLATION"
	RawPayload []byte // Pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// DecisionPayload is the wire form of a scheduling decision.
type DecisionPayload struct {
	Decision DecisionInner `json:"decision"`
}

// DecisionInner contains the decision details.
type DecisionInner struct {
	ID        string             `json:"id"`
	Timestamp string             `json:"timestamp"`
	Lane      string             `json:"lane,omitempty"`
	Reason    string             `json:"reason"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Colors    map[string]string  `json:"colors"`
	Unacked   bool               `json:"unacked,omitempty"`
}

// FormatDecisionPayload creates the JSON payload for a decision.
func FormatDecisionPayload(d logic.Decision) ([]byte, error) {
	inner := DecisionInner{
		ID:        d.ID,
		Timestamp: d.Timestamp.UTC().Format(time.RFC3339Nano),
		Lane:      string(d.Lane),
		Reason:    string(d.Reason),
		Unacked:   d.Unacked,
	}
	if len(d.Scores) > 0 {
		inner.Scores = make(map[string]float64, len(d.Scores))
		for lane, score := range d.Scores {
			inner.Scores[string(lane)] = score
		}
	}
	inner.Colors = make(map[string]string, len(d.Colors))
	for lane, color := range d.Colors {
		inner.Colors[string(lane)] = string(color)
	}
	return json.Marshal(DecisionPayload{Decision: inner})
}

// SystemPayload is the wire form of a system event without a status
// snapshot attached.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// SensorEvent is one inbound sensor reading. Exactly one of VehicleDelta,
// VehicleCount, or Emergency must be present.
type SensorEvent struct {
	Lane         logic.Lane
	VehicleDelta *int
	VehicleCount *int
	Emergency    *bool
	Timestamp    time.Time
}

// sensorWire is the JSON shape published by the sensor adapters.
type sensorWire struct {
	Lane         string `json:"lane"`
	VehicleDelta *int   `json:"vehicle_delta,omitempty"`
	VehicleCount *int   `json:"vehicle_count,omitempty"`
	Emergency    *bool  `json:"emergency,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// ParseSensorEvent decodes an inbound sensor message. Sensor input is
// untrusted: malformed events are rejected wrapping logic.ErrInput so the
// caller can drop them and keep the last known state.
func ParseSensorEvent(payload []byte) (SensorEvent, error) {
	var w sensorWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return SensorEvent{}, fmt.Errorf("%w: decode sensor event: %v", logic.ErrInput, err)
	}
	if w.Lane == "" {
		return SensorEvent{}, fmt.Errorf("%w: sensor event missing lane", logic.ErrInput)
	}
	set := 0
	for _, present := range []bool{w.VehicleDelta != nil, w.VehicleCount != nil, w.Emergency != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return SensorEvent{}, fmt.Errorf("%w: sensor event must carry exactly one of vehicle_delta, vehicle_count, emergency", logic.ErrInput)
	}

	ev := SensorEvent{
		Lane:         logic.Lane(w.Lane),
		VehicleDelta: w.VehicleDelta,
		VehicleCount: w.VehicleCount,
		Emergency:    w.Emergency,
	}
	if w.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			return SensorEvent{}, fmt.Errorf("%w: bad sensor timestamp %q: %v", logic.ErrInput, w.Timestamp, err)
		}
		ev.Timestamp = ts
	}
	return ev, nil
}
