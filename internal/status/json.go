package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Door          string       `json:"door"`
	Relay         string       `json:"relay"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Environment   *EnvJSON     `json:"environment,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of node counters.
type CountsJSON struct {
	DoorOpened       int `json:"door_opened"`
	DoorClosed       int `json:"door_closed"`
	RelayPulses      int `json:"relay_pulses"`
	RejectedCommands int `json:"rejected_commands"`
}

// EnvJSON is the last environment reading. Invalid values are null.
type EnvJSON struct {
	TemperatureF *float64 `json:"temperature_f"`
	Humidity     *float64 `json:"humidity"`
	Timestamp    string   `json:"timestamp"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceID        string `json:"device_id"`
	PollMs          int64  `json:"poll_ms"`
	DebounceMs      int64  `json:"debounce_ms"`
	PulseDurationMs int64  `json:"pulse_duration_ms"`
	StatsIntervalS  int64  `json:"stats_interval_s"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

// DoorString returns the door state for display, UNKNOWN before the first report.
func DoorString(snap Snapshot) string {
	if snap.Door == "" {
		return "UNKNOWN"
	}
	return string(snap.Door)
}

func buildInner(snap Snapshot) StatusInner {
	relay := string(snap.Relay)
	if relay == "" {
		relay = "UNKNOWN"
	}

	inner := StatusInner{
		Door:          DoorString(snap),
		Relay:         relay,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			DoorOpened:       snap.Counts.DoorOpened,
			DoorClosed:       snap.Counts.DoorClosed,
			RelayPulses:      snap.Counts.RelayPulses,
			RejectedCommands: snap.Counts.RejectedCommands,
		},
		Config: ConfigJSON{
			DeviceID:        snap.Config.DeviceID,
			PollMs:          snap.Config.PollMs,
			DebounceMs:      snap.Config.DebounceMs,
			PulseDurationMs: snap.Config.PulseDurationMs,
			StatsIntervalS:  snap.Config.StatsIntervalS,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}

	if snap.Reading != nil {
		inner.Environment = &EnvJSON{
			TemperatureF: finite(snap.Reading.TemperatureF),
			Humidity:     finite(snap.Reading.Humidity),
			Timestamp:    snap.ReadingAt.UTC().Format(time.RFC3339),
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}

	return inner
}

// finite returns nil for NaN and infinities, which encoding/json rejects.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatJSON returns the JSON status for the web endpoint (no event).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns compact JSON status tagged with a lifecycle event name.
func FormatStatusEvent(snap Snapshot, event string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
