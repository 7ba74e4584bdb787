// Package logic contains the pure control logic for the garage door node.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Level is a digital line level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// DoorState is the door position derived from the debounced sensor level.
type DoorState string

const (
	DoorUnknown DoorState = ""
	DoorOpen    DoorState = "OPEN"
	DoorClosed  DoorState = "CLOSED"
)

// RelayState is the state of the opener relay.
type RelayState string

const (
	RelayIdle   RelayState = "IDLE"
	RelayActive RelayState = "ACTIVE"
)

// Homie node and property names.
const (
	NodeOpener      = "doorOpener"
	NodeEnvironment = "environmentMonitor"

	PropertyDoor        = "door"
	PropertyButton      = "button"
	PropertyTemperature = "temperature"
	PropertyHumidity    = "humidity"
)

// Property values for door and button.
const (
	DoorValueOpen    = "Open"
	DoorValueClose   = "Close"
	ButtonValueTrue  = "true"
	ButtonValueFalse = "false"
)

// Default timings.
const (
	DefaultDebounce      = 500 * time.Millisecond
	DefaultPulseDuration = 250 * time.Millisecond
	DefaultStatsInterval = 600 * time.Second
)

// Event is a property update to be published through the bridge.
type Event struct {
	Timestamp time.Time
	Node      string
	Property  string
	Value     string
}

// Reading is a single environment sample.
type Reading struct {
	TemperatureF float64 // degrees Fahrenheit
	Humidity     float64 // relative humidity, percent
}

// Counts tracks what the node has done since startup.
type Counts struct {
	DoorOpened       int
	DoorClosed       int
	RelayPulses      int
	RejectedCommands int
}

// LifecycleEvent is a bridge lifecycle notification.
type LifecycleEvent int

const (
	LifecycleMQTTReady LifecycleEvent = iota
	LifecycleMQTTDisconnected
	LifecycleSendingStatistics
)

func (e LifecycleEvent) String() string {
	switch e {
	case LifecycleMQTTReady:
		return "MQTT_READY"
	case LifecycleMQTTDisconnected:
		return "MQTT_DISCONNECTED"
	case LifecycleSendingStatistics:
		return "SENDING_STATISTICS"
	default:
		return "UNKNOWN"
	}
}
