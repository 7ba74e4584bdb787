package mqtt

import (
	"time"

	"github.com/sweeney/garage-door/internal/logic"
)

// FakeBridge records published events for test assertions.
type FakeBridge struct {
	// Events contains all property updates that were published.
	Events []logic.Event

	// Stats contains the uptime of every PublishStats call.
	Stats []time.Duration

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	commands  chan Command
	lifecycle chan logic.LifecycleEvent
}

// NewFakeBridge creates a FakeBridge for testing.
func NewFakeBridge() *FakeBridge {
	return &FakeBridge{
		commands:  make(chan Command, commandBuffer),
		lifecycle: make(chan logic.LifecycleEvent, commandBuffer),
	}
}

// Publish records the event.
func (f *FakeBridge) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Events = append(f.Events, event)
	return nil
}

// PublishStats records the uptime.
func (f *FakeBridge) PublishStats(uptime time.Duration) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Stats = append(f.Stats, uptime)
	return nil
}

// Commands returns the channel fed by SendCommand.
func (f *FakeBridge) Commands() <-chan Command {
	return f.commands
}

// Lifecycle returns the channel fed by SendLifecycle.
func (f *FakeBridge) Lifecycle() <-chan logic.LifecycleEvent {
	return f.lifecycle
}

// SendCommand queues an inbound command, as the broker would.
func (f *FakeBridge) SendCommand(cmd Command) {
	f.commands <- cmd
}

// SendLifecycle queues a lifecycle event.
func (f *FakeBridge) SendLifecycle(evt logic.LifecycleEvent) {
	f.lifecycle <- evt
}

// Close marks the bridge as closed.
func (f *FakeBridge) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake bridge is "connected".
func (f *FakeBridge) IsConnected() bool {
	return f.Connected
}

// Values returns the published values of one property, in order.
func (f *FakeBridge) Values(property string) []string {
	var out []string
	for _, e := range f.Events {
		if e.Property == property {
			out = append(out, e.Value)
		}
	}
	return out
}

// Reset clears recorded events.
func (f *FakeBridge) Reset() {
	f.Events = nil
	f.Stats = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
