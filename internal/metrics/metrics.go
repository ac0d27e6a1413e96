// Package metrics exposes Prometheus instrumentation for the scheduling
// loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/signal-controller/internal/logic"
)

// Metrics holds the controller's Prometheus collectors.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	Preemptions    prometheus.Counter
	SensorEvents   prometheus.Counter
	InputErrors    prometheus.Counter
	ActuatorErrors prometheus.Counter

	VehicleCount *prometheus.GaugeVec
	WaitSeconds  *prometheus.GaugeVec
	PhaseActive  *prometheus.GaugeVec
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_decisions_total",
			Help: "Scheduling decisions by reason.",
		}, []string{"reason"}),
		Preemptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "signal_preemptions_total",
			Help: "Emergency preemptions of an in-progress green phase.",
		}),
		SensorEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "signal_sensor_events_total",
			Help: "Accepted inbound sensor events.",
		}),
		InputErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "signal_input_errors_total",
			Help: "Malformed sensor/control events dropped.",
		}),
		ActuatorErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "signal_actuator_errors_total",
			Help: "Failed GPIO actuator commands.",
		}),
		VehicleCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signal_lane_vehicles",
			Help: "Vehicles queued per lane.",
		}, []string{"lane"}),
		WaitSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signal_lane_wait_seconds",
			Help: "Cumulative wait per lane.",
		}, []string{"lane"}),
		PhaseActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signal_phase_active",
			Help: "1 for the current FSM phase, 0 otherwise.",
		}, []string{"phase"}),
	}
}

// ObserveTick records one tick's decision, lane snapshots, and phase.
func (m *Metrics) ObserveTick(d logic.Decision, snaps []logic.LaneSnapshot, phase logic.Phase) {
	m.Decisions.WithLabelValues(string(d.Reason)).Inc()
	// An emergency decision that lands while another lane's yellow runs
	// means a green was cut short.
	if d.Reason == logic.ReasonEmergency && phase.State == logic.PhaseYellow && phase.Lane != d.Lane {
		m.Preemptions.Inc()
	}
	for _, s := range snaps {
		m.VehicleCount.WithLabelValues(string(s.Lane)).Set(float64(s.VehicleCount))
		m.WaitSeconds.WithLabelValues(string(s.Lane)).Set(s.Wait.Seconds())
	}
	for _, p := range []logic.PhaseState{logic.PhaseAllRed, logic.PhaseGreen, logic.PhaseYellow, logic.PhaseFailSafe} {
		v := 0.0
		if p == phase.State {
			v = 1.0
		}
		m.PhaseActive.WithLabelValues(string(p)).Set(v)
	}
}
