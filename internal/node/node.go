// Package node runs the garage door opener: it debounces the door sensor,
// pulses the opener relay on command and samples the environment sensor.
//
// A Node is not safe for concurrent use. The run loop owns it and feeds it
// ticks, commands and lifecycle events from a single goroutine.
package node

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/garage-door/internal/env"
	"github.com/sweeney/garage-door/internal/gpio"
	"github.com/sweeney/garage-door/internal/logic"
	"github.com/sweeney/garage-door/internal/mqtt"
)

// Publisher sends property updates to the network.
type Publisher interface {
	Publish(event logic.Event) error
}

// Recorder stores published updates and readings for later analysis.
type Recorder interface {
	WriteEvent(event logic.Event) error
	WriteReading(r logic.Reading, at time.Time) error
}

// Options configures a Node. Sensor, Relay and Publisher are required.
type Options struct {
	Sensor    gpio.Reader
	Relay     gpio.Output
	Env       env.Reader // nil disables environment sampling
	Publisher Publisher
	Recorder  Recorder // nil disables recording
	Polarity  logic.Polarity
	Debounce  time.Duration
	Pulse     time.Duration
	Logger    *slog.Logger
}

// State is a copy of the node's observable state.
type State struct {
	Door      logic.DoorState
	Relay     logic.RelayState
	Baselined bool
	Counts    logic.Counts
	Reading   *logic.Reading
	ReadingAt time.Time
}

// Node wires the pure door, relay and sampler logic to hardware and transport.
type Node struct {
	sensor    gpio.Reader
	output    gpio.Output
	env       env.Reader
	publisher Publisher
	recorder  Recorder
	log       *slog.Logger

	counts    logic.Counts
	debouncer *logic.Debouncer
	door      *logic.DoorTracker
	relay     *logic.Relay

	reading   *logic.Reading
	readingAt time.Time

	readFailing bool
}

// New creates a Node. Zero Debounce and Pulse use the defaults.
func New(opts Options) *Node {
	if opts.Debounce <= 0 {
		opts.Debounce = logic.DefaultDebounce
	}
	if opts.Pulse <= 0 {
		opts.Pulse = logic.DefaultPulseDuration
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	n := &Node{
		sensor:    opts.Sensor,
		output:    opts.Relay,
		env:       opts.Env,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		log:       log.With("component", "node"),
		debouncer: logic.NewDebouncer(opts.Debounce),
	}
	n.door = logic.NewDoorTracker(opts.Polarity, &n.counts)
	n.relay = logic.NewRelay(opts.Pulse, &n.counts)
	return n
}

// Tick runs one control cycle: sample the door sensor and release the
// relay when its pulse has elapsed.
func (n *Node) Tick(now time.Time) {
	n.sampleDoor(now)

	if evt, ok := n.relay.Tick(now); ok {
		if err := n.output.Set(false); err != nil {
			n.log.Error("relay release failed", "error", err)
		}
		n.log.Info("relay released")
		n.publish(evt)
	}
}

func (n *Node) sampleDoor(now time.Time) {
	raw, err := n.sensor.Read()
	if err != nil {
		// Log once per failure streak.
		if !n.readFailing {
			n.log.Warn("door sensor read failed", "error", err)
			n.readFailing = true
		}
		return
	}
	if n.readFailing {
		n.log.Info("door sensor read recovered")
		n.readFailing = false
	}

	level, ok := n.debouncer.Sample(logic.Level(raw), now)
	if !ok {
		return
	}
	if evt, changed := n.door.Update(level, now); changed {
		n.log.Info("door state", "door", n.door.State(), "level", level.String())
		n.publish(evt)
	}
}

// HandleCommand applies an inbound set command. Only the opener button is
// settable; a truthy value starts (or restarts) a relay pulse.
func (n *Node) HandleCommand(cmd mqtt.Command, now time.Time) {
	if cmd.Node != logic.NodeOpener || cmd.Property != logic.PropertyButton {
		n.log.Warn("ignoring command for unknown property", "node", cmd.Node, "property", cmd.Property)
		return
	}

	if !n.relay.Accept(cmd.Value) {
		n.log.Info("ignoring button command", "value", cmd.Value)
		return
	}

	// Nothing is committed or published unless the output was driven.
	if err := n.output.Set(true); err != nil {
		n.log.Error("relay activate failed", "error", err)
		return
	}
	n.log.Info("relay activated")
	n.publish(n.relay.Commit(now))
}

// HandleLifecycle reacts to transport lifecycle events. Statistics
// intervals trigger an environment sample.
func (n *Node) HandleLifecycle(evt logic.LifecycleEvent, now time.Time) {
	switch evt {
	case logic.LifecycleMQTTReady:
		n.log.Info("mqtt ready")
	case logic.LifecycleMQTTDisconnected:
		n.log.Warn("mqtt disconnected")
	case logic.LifecycleSendingStatistics:
		n.log.Debug("sending statistics")
		n.SampleEnvironment(now)
	default:
		n.log.Debug("unhandled lifecycle event", "event", evt.String())
	}
}

// SampleEnvironment reads the environment sensor and publishes the
// temperature and humidity. Invalid values are published as NaN.
func (n *Node) SampleEnvironment(now time.Time) {
	if n.env == nil {
		return
	}

	r, err := n.env.Read()
	if err != nil {
		n.log.Warn("environment read failed", "error", err)
	}

	n.reading = &r
	n.readingAt = now
	for _, e := range logic.FormatReading(r, now) {
		n.publish(e)
	}

	if n.recorder != nil {
		if err := n.recorder.WriteReading(r, now); err != nil {
			n.log.Debug("record reading failed", "error", err)
		}
	}
}

func (n *Node) publish(evt logic.Event) {
	if err := n.publisher.Publish(evt); err != nil {
		n.log.Warn("publish failed", "property", evt.Property, "value", evt.Value, "error", err)
	}
	if n.recorder != nil {
		if err := n.recorder.WriteEvent(evt); err != nil {
			n.log.Debug("record event failed", "error", err)
		}
	}
}

// Snapshot returns a copy of the current state.
func (n *Node) Snapshot() State {
	_, baselined := n.debouncer.Stable()
	s := State{
		Door:      n.door.State(),
		Relay:     n.relay.State(),
		Baselined: baselined,
		Counts:    n.counts,
		ReadingAt: n.readingAt,
	}
	if n.reading != nil {
		r := *n.reading
		s.Reading = &r
	}
	return s
}

// Close drives the relay idle and releases the hardware lines.
func (n *Node) Close() error {
	return errors.Join(n.output.Close(), n.sensor.Close())
}
