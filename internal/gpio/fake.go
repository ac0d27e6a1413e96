package gpio

import "github.com/sweeney/signal-controller/internal/logic"

// FakeDriver is a test double that records every frame applied to it.
type FakeDriver struct {
	// Frames contains a copy of the colors from each Apply call, in order.
	Frames []map[logic.Lane]logic.Color

	// FlashCalls counts Flash invocations.
	FlashCalls int

	// Closed tracks if Close was called.
	Closed bool

	// ApplyError, if set, will be returned by Apply.
	ApplyError error

	// FlashError, if set, will be returned by Flash.
	FlashError error
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Apply records a copy of the frame.
func (f *FakeDriver) Apply(colors map[logic.Lane]logic.Color) error {
	if f.ApplyError != nil {
		return f.ApplyError
	}
	frame := make(map[logic.Lane]logic.Color, len(colors))
	for lane, c := range colors {
		frame[lane] = c
	}
	f.Frames = append(f.Frames, frame)
	return nil
}

// Flash records the fail-safe request.
func (f *FakeDriver) Flash() error {
	if f.FlashError != nil {
		return f.FlashError
	}
	f.FlashCalls++
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recently applied frame, or nil.
func (f *FakeDriver) Last() map[logic.Lane]logic.Color {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// Reset clears recorded state.
func (f *FakeDriver) Reset() {
	f.Frames = nil
	f.FlashCalls = 0
	f.Closed = false
	f.ApplyError = nil
	f.FlashError = nil
}
