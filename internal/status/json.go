package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Phase         string     `json:"phase"`
	ActiveLane    string     `json:"active_lane,omitempty"`
	Paused        bool       `json:"paused"`
	Lanes         []LaneJSON `json:"lanes"`
	LastReason    string     `json:"last_decision_reason,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"decision_counts"`
	Config        ConfigJSON `json:"config"`
}

// LaneJSON is the JSON representation of one lane.
type LaneJSON struct {
	Lane        string  `json:"lane"`
	Color       string  `json:"color"`
	Vehicles    int     `json:"vehicles"`
	Capacity    int     `json:"capacity"`
	WaitSeconds float64 `json:"wait_seconds"`
	Emergency   bool    `json:"emergency,omitempty"`
	Score       float64 `json:"score"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decision counts.
type CountsJSON struct {
	Density        int `json:"density"`
	Fairness       int `json:"fairness"`
	Emergency      int `json:"emergency"`
	Held           int `json:"held"`
	InputErrors    int `json:"input_errors"`
	ActuatorErrors int `json:"actuator_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs          int64   `json:"tick_ms"`
	MinGreenMs      int64   `json:"min_green_ms"`
	MaxGreenMs      int64   `json:"max_green_ms"`
	YellowMs        int64   `json:"yellow_ms"`
	ClearanceMs     int64   `json:"all_red_clearance_ms"`
	EmergencyMs     int64   `json:"emergency_green_ms"`
	MaxWaitMs       int64   `json:"max_wait_ms"`
	HeartbeatMs     int64   `json:"heartbeat_ms"`
	DensityWeight   float64 `json:"density_weight"`
	WaitWeight      float64 `json:"wait_weight"`
	SimulationSpeed float64 `json:"simulation_speed"`
	Broker          string  `json:"broker"`
	HTTPAddr        string  `json:"http_addr"`
	Headless        bool    `json:"headless,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	lanes := make([]LaneJSON, 0, len(snap.Lanes))
	for _, l := range snap.Lanes {
		color := string(l.Color)
		if color == "" {
			color = "RED"
		}
		lanes = append(lanes, LaneJSON{
			Lane:        string(l.Lane),
			Color:       color,
			Vehicles:    l.Vehicles,
			Capacity:    l.Capacity,
			WaitSeconds: l.WaitSeconds,
			Emergency:   l.Emergency,
			Score:       l.Score,
		})
	}

	return StatusInner{
		Phase:         phase,
		ActiveLane:    string(snap.ActiveLane),
		Paused:        snap.Paused,
		Lanes:         lanes,
		LastReason:    string(snap.LastReason),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Density:        snap.Counts.Density,
			Fairness:       snap.Counts.Fairness,
			Emergency:      snap.Counts.Emergency,
			Held:           snap.Counts.Held,
			InputErrors:    snap.Counts.InputErrors,
			ActuatorErrors: snap.Counts.ActuatorErrors,
		},
		Config: ConfigJSON{
			TickMs:          snap.Config.TickMs,
			MinGreenMs:      snap.Config.MinGreenMs,
			MaxGreenMs:      snap.Config.MaxGreenMs,
			YellowMs:        snap.Config.YellowMs,
			ClearanceMs:     snap.Config.ClearanceMs,
			EmergencyMs:     snap.Config.EmergencyMs,
			MaxWaitMs:       snap.Config.MaxWaitMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			DensityWeight:   snap.Config.DensityWeight,
			WaitWeight:      snap.Config.WaitWeight,
			SimulationSpeed: snap.Config.SimulationSpeed,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			Headless:        snap.Config.Headless,
		},
	}
}

// FormatJSON renders the snapshot for the HTTP status endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent renders the snapshot as a system event payload
// (STARTUP, SHUTDOWN, HEARTBEAT) for MQTT.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
