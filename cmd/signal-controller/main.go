// Command signal-controller schedules the signal phases of a single road
// intersection: it reacts to per-lane vehicle density, cumulative wait, and
// emergency preemption, drives the GPIO signal heads, and publishes every
// decision to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/signal-controller/internal/gpio"
	"github.com/sweeney/signal-controller/internal/logic"
	"github.com/sweeney/signal-controller/internal/metrics"
	"github.com/sweeney/signal-controller/internal/mqtt"
	"github.com/sweeney/signal-controller/internal/status"
	"github.com/sweeney/signal-controller/internal/web"
)

func main() {
	tick := flag.Duration("tick", 100*time.Millisecond, "Scheduling tick interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", `MQTT broker address ("off" to disable)`)
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	headless := flag.Bool("headless", false, "Run without GPIO hardware")
	debug := flag.Bool("debug", false, "Log every decision")
	simSpeed := flag.Float64("simulation-speed", 1.0, "Time multiplier for simulated runs")
	minGreen := flag.Duration("min-green", 15*time.Second, "Minimum green duration")
	maxGreen := flag.Duration("max-green", 60*time.Second, "Maximum green duration")
	baseGreen := flag.Duration("base-green", 20*time.Second, "Base green duration before priority bonus")
	yellow := flag.Duration("yellow", 3*time.Second, "Yellow duration (never shortened)")
	clearance := flag.Duration("all-red", 2*time.Second, "All-red clearance interval")
	emergencyGreen := flag.Duration("emergency-green", 20*time.Second, "Green duration for emergency service")
	maxWait := flag.Duration("max-wait", 120*time.Second, "Maximum acceptable wait before fairness override")
	densityWeight := flag.Float64("density-weight", 0.6, "Priority weight for lane density")
	waitWeight := flag.Float64("wait-weight", 0.4, "Priority weight for lane wait time")
	capacity := flag.Int("capacity", 10, "Vehicle capacity per lane")
	lanes := flag.String("lanes", "north,east,south,west", "Comma-separated lane names in tie-break order")
	discharge := flag.Float64("discharge-rate", 0.5, "Vehicles per second clearing a green lane")

	flag.Parse()

	cfg := logic.DefaultConfig()
	cfg.Tick = *tick
	cfg.MinGreen = *minGreen
	cfg.MaxGreen = *maxGreen
	cfg.BaseGreen = *baseGreen
	cfg.Yellow = *yellow
	cfg.AllRedClearance = *clearance
	cfg.EmergencyGreen = *emergencyGreen
	cfg.MaxWait = *maxWait
	cfg.DensityWeight = *densityWeight
	cfg.WaitWeight = *waitWeight
	cfg.SimulationSpeed = *simSpeed
	cfg.DischargeRate = *discharge
	applyLanes(&cfg, *lanes, *capacity)

	if err := run(cfg, *broker, *httpAddr, *heartbeat, *headless, *debug); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyLanes replaces the default lane set with the flag-specified one.
func applyLanes(cfg *logic.Config, list string, capacity int) {
	var names []logic.Lane
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, logic.Lane(name))
		}
	}
	cfg.Lanes = names
	cfg.Capacities = make(map[logic.Lane]int, len(names))
	for _, l := range names {
		cfg.Capacities[l] = capacity
	}
}

func run(cfg logic.Config, broker, httpAddr string, heartbeat time.Duration, headless, debug bool) error {
	// Config errors are fatal: refuse to start.
	sched, err := logic.NewScheduler(cfg)
	if err != nil {
		return err
	}

	// Actuator
	var driver gpio.Driver
	if headless {
		driver = gpio.Nop{}
	} else {
		real, err := gpio.NewRealDriver(gpio.DefaultPins)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		driver = real
	}
	defer driver.Close()

	// MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus
	var sensors <-chan mqtt.SensorEvent
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if broker != "off" {
		real, err := mqtt.NewRealPublisher(broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = real
		mqttStatus = real
		sensors, err = real.SubscribeSensors(func(err error) {
			log.Printf("sensor event rejected: %v", err)
			m.InputErrors.Inc()
		})
		if err != nil {
			return fmt.Errorf("subscribe sensors: %w", err)
		}
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:          cfg.Tick.Milliseconds(),
		MinGreenMs:      cfg.MinGreen.Milliseconds(),
		MaxGreenMs:      cfg.MaxGreen.Milliseconds(),
		YellowMs:        cfg.Yellow.Milliseconds(),
		ClearanceMs:     cfg.AllRedClearance.Milliseconds(),
		EmergencyMs:     cfg.EmergencyGreen.Milliseconds(),
		MaxWaitMs:       cfg.MaxWait.Milliseconds(),
		HeartbeatMs:     heartbeat.Milliseconds(),
		DensityWeight:   cfg.DensityWeight,
		WaitWeight:      cfg.WaitWeight,
		SimulationSpeed: cfg.SimulationSpeed,
		Broker:          broker,
		HTTPAddr:        httpAddr,
		Headless:        headless,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Control surface
	commands := make(chan web.Command, 16)
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, commands, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: tick=%v lanes=%v broker=%s heartbeat=%v headless=%v",
		cfg.Tick, cfg.Lanes, broker, heartbeat, headless)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loop := &loopDeps{
		sched:      sched,
		driver:     driver,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		heartbeat:  heartbeat,
		debug:      debug,
		now:        time.Now,
	}
	return runLoop(loop, ticker.C, sensors, commands, sigCh)
}

// loopDeps bundles the run loop's collaborators so tests can inject fakes.
type loopDeps struct {
	sched      *logic.Scheduler
	driver     gpio.Driver
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	heartbeat  time.Duration
	debug      bool
	now        func() time.Time
}

func runLoop(d *loopDeps, tick <-chan time.Time, sensors <-chan mqtt.SensorEvent, commands <-chan web.Command, sig <-chan os.Signal) error {
	lastHeartbeat := d.now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			shutdown(d, signalName)
			return nil

		case ev := <-sensors:
			applySensor(d, ev)

		case cmd := <-commands:
			applyCommand(d, cmd)

		case <-tick:
			now := d.now()
			decision, err := d.sched.Tick(now)
			if err != nil {
				// Safety violation: fail-safe and stop.
				log.Printf("safety violation: %v", err)
				shutdown(d, "SAFETY_VIOLATION")
				return err
			}

			applyColors(d, decision)

			if err := d.publisher.PublishDecision(decision); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

			if d.debug && decision.Lane != "" {
				log.Printf("decision: %s -> %s", decision.Reason, decision.Lane)
			}

			snaps := d.sched.Snapshots()
			phase := d.sched.Phase()
			d.tracker.Update(phase, d.sched.Paused(), snaps, decision)
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			d.metrics.ObserveTick(decision, snaps, phase)

			if d.heartbeat > 0 && now.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = now
				hbEvent := mqtt.SystemEvent{
					Timestamp:  now,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", ""),
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// applyColors drives the signal heads. Actuator failures never stall the
// loop: they are logged, counted, and surfaced on the next decision.
func applyColors(d *loopDeps, decision logic.Decision) {
	if err := d.driver.Apply(decision.Colors); err != nil {
		log.Printf("actuator error: %v", err)
		d.sched.CommandUnacked()
		d.tracker.AddActuatorError()
		d.metrics.ActuatorErrors.Inc()
	}
}

// applySensor feeds one inbound sensor event into the scheduler.
// Input errors are logged and dropped; the last known state is retained.
func applySensor(d *loopDeps, ev mqtt.SensorEvent) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = d.now()
	}

	var err error
	switch {
	case ev.VehicleDelta != nil:
		err = d.sched.InjectTraffic(ev.Lane, *ev.VehicleDelta)
	case ev.VehicleCount != nil:
		err = d.sched.SetTraffic(ev.Lane, *ev.VehicleCount)
	case ev.Emergency != nil && *ev.Emergency:
		err = d.sched.TriggerEmergency(ev.Lane, ts)
	case ev.Emergency != nil:
		err = d.sched.ClearEmergency(ev.Lane)
	}
	if err != nil {
		log.Printf("sensor event rejected: %v", err)
		d.tracker.AddInputError()
		d.metrics.InputErrors.Inc()
		return
	}
	d.metrics.SensorEvents.Inc()
}

// applyCommand handles one control request from the HTTP surface.
func applyCommand(d *loopDeps, cmd web.Command) {
	var err error
	switch cmd.Op {
	case web.OpPause:
		d.sched.Pause()
		log.Printf("paused")
	case web.OpResume:
		d.sched.Resume()
		log.Printf("resumed")
	case web.OpReset:
		d.sched.Reset()
		log.Printf("reset to startup state")
	case web.OpEmergency:
		err = d.sched.TriggerEmergency(cmd.Lane, d.now())
	case web.OpInject:
		err = d.sched.InjectTraffic(cmd.Lane, cmd.Amount)
	default:
		err = errors.New("unknown control operation")
	}
	if err != nil {
		log.Printf("control %s rejected: %v", cmd.Op, err)
		d.tracker.AddInputError()
		d.metrics.InputErrors.Inc()
	}
}

// shutdown drops the intersection into fail-safe and announces it.
func shutdown(d *loopDeps, reason string) {
	d.sched.Shutdown()
	if err := d.driver.Flash(); err != nil {
		log.Printf("failed to enter fail-safe flash: %v", err)
	}
	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", reason)
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}
