//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/signal-controller/internal/logic"
)

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(map[logic.Lane]LanePins) (*RealDriver, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Apply is not implemented on non-Linux platforms.
func (d *RealDriver) Apply(map[logic.Lane]logic.Color) error {
	return errors.New("gpio: not supported")
}

// Flash is not implemented on non-Linux platforms.
func (d *RealDriver) Flash() error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
