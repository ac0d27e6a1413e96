//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/signal-controller/internal/logic"
)

// flashPeriod is the fail-safe flashing-red toggle interval.
const flashPeriod = 500 * time.Millisecond

// head holds the requested output lines for one lane.
type head struct {
	red    *gpiocdev.Line
	yellow *gpiocdev.Line
	green  *gpiocdev.Line
}

// RealDriver drives actual signal heads through the Linux GPIO character
// device.
type RealDriver struct {
	chip  *gpiocdev.Chip
	heads map[logic.Lane]head

	mu       sync.Mutex
	flashing bool
	stop     chan struct{}
}

// NewRealDriver opens gpiochip0 and requests every configured pin as an
// output, initially low (all heads dark until the first Apply).
func NewRealDriver(pins map[logic.Lane]LanePins) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &RealDriver{chip: chip, heads: make(map[logic.Lane]head, len(pins))}
	for lane, p := range pins {
		red, err := chip.RequestLine(p.Red, gpiocdev.AsOutput(0))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request %s red pin %d: %w", lane, p.Red, err)
		}
		yellow, err := chip.RequestLine(p.Yellow, gpiocdev.AsOutput(0))
		if err != nil {
			red.Close()
			d.Close()
			return nil, fmt.Errorf("request %s yellow pin %d: %w", lane, p.Yellow, err)
		}
		green, err := chip.RequestLine(p.Green, gpiocdev.AsOutput(0))
		if err != nil {
			red.Close()
			yellow.Close()
			d.Close()
			return nil, fmt.Errorf("request %s green pin %d: %w", lane, p.Green, err)
		}
		d.heads[lane] = head{red: red, yellow: yellow, green: green}
	}
	return d, nil
}

// Apply drives every lane's head to the given color. Stops any fail-safe
// flashing first.
func (d *RealDriver) Apply(colors map[logic.Lane]logic.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopFlashLocked()

	for lane, color := range colors {
		h, ok := d.heads[lane]
		if !ok {
			return fmt.Errorf("no head wired for lane %q", lane)
		}
		red, yellow, green := 0, 0, 0
		switch color {
		case logic.ColorRed, logic.ColorFlashingRed:
			red = 1
		case logic.ColorYellow:
			yellow = 1
		case logic.ColorGreen:
			green = 1
		}
		if err := h.red.SetValue(red); err != nil {
			return fmt.Errorf("set %s red: %w", lane, err)
		}
		if err := h.yellow.SetValue(yellow); err != nil {
			return fmt.Errorf("set %s yellow: %w", lane, err)
		}
		if err := h.green.SetValue(green); err != nil {
			return fmt.Errorf("set %s green: %w", lane, err)
		}
	}
	return nil
}

// Flash enters the fail-safe pattern: all reds toggling together, yellow
// and green dark. Runs until the next Apply or Close.
func (d *RealDriver) Flash() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.flashing {
		return nil
	}

	for lane, h := range d.heads {
		if err := h.yellow.SetValue(0); err != nil {
			return fmt.Errorf("set %s yellow: %w", lane, err)
		}
		if err := h.green.SetValue(0); err != nil {
			return fmt.Errorf("set %s green: %w", lane, err)
		}
	}

	d.flashing = true
	d.stop = make(chan struct{})
	go d.flashLoop(d.stop)
	return nil
}

func (d *RealDriver) flashLoop(stop chan struct{}) {
	ticker := time.NewTicker(flashPeriod)
	defer ticker.Stop()
	on := 1
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			for _, h := range d.heads {
				// Best effort: a failed toggle is retried next period.
				h.red.SetValue(on)
			}
			d.mu.Unlock()
			on = 1 - on
		}
	}
}

// stopFlashLocked stops the flash goroutine. Caller holds d.mu.
func (d *RealDriver) stopFlashLocked() {
	if !d.flashing {
		return
	}
	close(d.stop)
	d.flashing = false
}

// Close reconfigures every pin back to an input (matching Pi boot defaults)
// and releases the chip.
func (d *RealDriver) Close() error {
	d.mu.Lock()
	d.stopFlashLocked()
	d.mu.Unlock()

	var errs []error
	closeLine := func(lane logic.Lane, name string, line *gpiocdev.Line) {
		if line == nil {
			return
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s %s: %w", lane, name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s %s: %w", lane, name, err))
		}
	}
	for lane, h := range d.heads {
		closeLine(lane, "red", h.red)
		closeLine(lane, "yellow", h.yellow)
		closeLine(lane, "green", h.green)
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
