// Package mqtt bridges the garage door node to an MQTT broker using the
// Homie convention, with an abstraction for testing.
package mqtt

import (
	"time"

	"github.com/sweeney/garage-door/internal/logic"
)

// Bridge is the transport the node publishes through and receives commands from.
type Bridge interface {
	// Publish sends a property update. It does not wait for delivery;
	// a returned error means the update was not handed to the transport.
	Publish(event logic.Event) error

	// PublishStats sends the device statistics ($stats/uptime).
	PublishStats(uptime time.Duration) error

	// Commands delivers inbound property set commands.
	Commands() <-chan Command

	// Lifecycle delivers transport lifecycle events.
	Lifecycle() <-chan logic.LifecycleEvent

	// Close announces a clean disconnect and disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Command is an inbound property set request.
type Command struct {
	Node     string
	Property string
	Value    string
}

// Device describes the node for the Homie advertisement.
type Device struct {
	ID              string
	Name            string
	FirmwareName    string
	FirmwareVersion string
	StatsInterval   time.Duration
}

// commandBuffer bounds the queue between the transport goroutine and the run loop.
const commandBuffer = 16
