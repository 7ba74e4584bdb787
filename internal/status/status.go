// Package status provides a thread-safe status tracker for the garage-door daemon.
// It is read by HTTP handlers while the run loop updates it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/garage-door/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceID        string
	PollMs          int64
	DebounceMs      int64
	PulseDurationMs int64
	StatsIntervalS  int64
	Broker          string
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Door          logic.DoorState
	Relay         logic.RelayState
	Baselined     bool
	Counts        logic.Counts
	Reading       *logic.Reading
	ReadingAt     time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Relay:     logic.RelayIdle,
			Config:    cfg,
		},
	}
}

// Update sets door and relay state, baseline status, and counts.
// Called from runLoop after every tick and command.
func (t *Tracker) Update(door logic.DoorState, relay logic.RelayState, baselined bool, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Door = door
	t.snap.Relay = relay
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetReading records the latest environment reading.
func (t *Tracker) SetReading(r logic.Reading, at time.Time) {
	t.mu.Lock()
	t.snap.Reading = &r
	t.snap.ReadingAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Reading != nil {
		r := *s.Reading
		s.Reading = &r
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
