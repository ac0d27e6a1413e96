package mqtt

import "github.com/sweeney/signal-controller/internal/logic"

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Decisions contains all decisions that were published.
	Decisions []logic.Decision

	// DecisionPayloads contains the JSON payloads for decisions.
	DecisionPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishDecision.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishDecision records the decision.
func (f *FakePublisher) PublishDecision(d logic.Decision) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Decisions = append(f.Decisions, d)

	payload, err := FormatDecisionPayload(d)
	if err != nil {
		return err
	}
	f.DecisionPayloads = append(f.DecisionPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded state.
func (f *FakePublisher) Reset() {
	f.Decisions = nil
	f.DecisionPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}

// Discard is a publisher that drops everything; used when no broker is
// configured.
type Discard struct{}

// PublishDecision drops the decision.
func (Discard) PublishDecision(logic.Decision) error { return nil }

// PublishSystem drops the event.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }
