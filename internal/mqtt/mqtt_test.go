package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/signal-controller/internal/logic"
)

func TestFormatDecisionPayload(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	d := logic.Decision{
		ID:        "dec-1",
		Timestamp: ts,
		Lane:      logic.LaneNorth,
		Reason:    logic.ReasonDensity,
		Scores:    map[logic.Lane]float64{logic.LaneNorth: 54, logic.LaneEast: 6},
		Colors: map[logic.Lane]logic.Color{
			logic.LaneNorth: logic.ColorGreen,
			logic.LaneEast:  logic.ColorRed,
		},
	}

	raw, err := FormatDecisionPayload(d)
	require.NoError(t, err)

	var got DecisionPayload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "dec-1", got.Decision.ID)
	assert.Equal(t, "2026-03-04T05:06:07Z", got.Decision.Timestamp)
	assert.Equal(t, "north", got.Decision.Lane)
	assert.Equal(t, "DENSITY", got.Decision.Reason)
	assert.Equal(t, 54.0, got.Decision.Scores["north"])
	assert.Equal(t, "GREEN", got.Decision.Colors["north"])
	assert.Equal(t, "RED", got.Decision.Colors["east"])
	assert.False(t, got.Decision.Unacked)
}

func TestFormatDecisionPayloadHoldOmitsLane(t *testing.T) {
	d := logic.Decision{
		ID:        "dec-2",
		Timestamp: time.Now(),
		Reason:    logic.ReasonMinGreenHeld,
		Colors:    map[logic.Lane]logic.Color{logic.LaneNorth: logic.ColorRed},
	}
	raw, err := FormatDecisionPayload(d)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"lane"`)
	assert.NotContains(t, string(raw), `"scores"`)
}

func TestFormatSystemPayload(t *testing.T) {
	raw, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	require.NoError(t, err)

	var got SystemPayload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "SHUTDOWN", got.System.Event)
	assert.Equal(t, "SIGTERM", got.System.Reason)
	assert.Equal(t, "2026-03-04T05:06:07Z", got.System.Timestamp)
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"phase":"ALL_RED"}}`)
	got, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestParseSensorEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, ev SensorEvent)
	}{
		{
			name:    "vehicle delta",
			payload: `{"lane":"north","vehicle_delta":3}`,
			check: func(t *testing.T, ev SensorEvent) {
				assert.Equal(t, logic.LaneNorth, ev.Lane)
				require.NotNil(t, ev.VehicleDelta)
				assert.Equal(t, 3, *ev.VehicleDelta)
			},
		},
		{
			name:    "absolute count",
			payload: `{"lane":"east","vehicle_count":7}`,
			check: func(t *testing.T, ev SensorEvent) {
				require.NotNil(t, ev.VehicleCount)
				assert.Equal(t, 7, *ev.VehicleCount)
			},
		},
		{
			name:    "emergency assert with timestamp",
			payload: `{"lane":"south","emergency":true,"timestamp":"2026-03-04T05:06:07Z"}`,
			check: func(t *testing.T, ev SensorEvent) {
				require.NotNil(t, ev.Emergency)
				assert.True(t, *ev.Emergency)
				assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), ev.Timestamp)
			},
		},
		{
			name:    "negative delta",
			payload: `{"lane":"west","vehicle_delta":-2}`,
			check: func(t *testing.T, ev SensorEvent) {
				require.NotNil(t, ev.VehicleDelta)
				assert.Equal(t, -2, *ev.VehicleDelta)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseSensorEvent([]byte(tt.payload))
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestParseSensorEventRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"missing lane", `{"vehicle_delta":1}`},
		{"no fields", `{"lane":"north"}`},
		{"two fields", `{"lane":"north","vehicle_delta":1,"emergency":true}`},
		{"all fields", `{"lane":"north","vehicle_delta":1,"vehicle_count":2,"emergency":true}`},
		{"bad timestamp", `{"lane":"north","vehicle_delta":1,"timestamp":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSensorEvent([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, logic.ErrInput), "should wrap ErrInput, got %v", err)
		})
	}
}

func TestFakePublisherRecords(t *testing.T) {
	p := NewFakePublisher()

	d := logic.Decision{ID: "d1", Reason: logic.ReasonDensity}
	require.NoError(t, p.PublishDecision(d))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: "STARTUP"}))

	require.Len(t, p.Decisions, 1)
	assert.Equal(t, "d1", p.Decisions[0].ID)
	require.Len(t, p.SystemEvents, 1)
	assert.Equal(t, "STARTUP", p.SystemEvents[0].Event)
	require.Len(t, p.DecisionPayloads, 1)
	assert.Contains(t, string(p.DecisionPayloads[0]), `"id":"d1"`)

	assert.False(t, p.IsConnected())
	p.Connected = true
	assert.True(t, p.IsConnected())

	p.PublishError = errors.New("broker down")
	assert.Error(t, p.PublishDecision(d))
	require.Len(t, p.Decisions, 1, "failed publish must not record")

	require.NoError(t, p.Close())
	assert.True(t, p.Closed)

	p.Reset()
	assert.Empty(t, p.Decisions)
	assert.False(t, p.Closed)
}
