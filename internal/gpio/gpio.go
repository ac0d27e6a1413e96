// Package gpio drives the per-lane signal heads with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/signal-controller/internal/logic"

// Driver applies signal colors to physical outputs.
type Driver interface {
	// Apply drives every lane's head to the given color. A failed apply
	// must not stall the scheduling loop; the caller logs and flags it.
	Apply(colors map[logic.Lane]logic.Color) error

	// Flash puts every head into the fail-safe flashing-red pattern.
	Flash() error

	// Close releases GPIO resources.
	Close() error
}

// LanePins holds the BCM pin numbers for one signal head.
type LanePins struct {
	Red    int
	Yellow int
	Green  int
}

// DefaultPins is the standard wiring for a four-way intersection head
// (BCM numbering).
var DefaultPins = map[logic.Lane]LanePins{
	logic.LaneNorth: {Red: 2, Yellow: 3, Green: 4},
	logic.LaneEast:  {Red: 17, Yellow: 27, Green: 22},
	logic.LaneSouth: {Red: 10, Yellow: 9, Green: 11},
	logic.LaneWest:  {Red: 5, Yellow: 6, Green: 13},
}

// Nop is a no-op driver for headless runs.
type Nop struct{}

// Apply does nothing.
func (Nop) Apply(map[logic.Lane]logic.Color) error { return nil }

// Flash does nothing.
func (Nop) Flash() error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
