package mqtt

import (
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/garage-door/internal/logic"
)

// HomieVersion is the convention version advertised in $homie.
const HomieVersion = "3.0.1"

// Homie device states.
const (
	StateInit         = "init"
	StateReady        = "ready"
	StateDisconnected = "disconnected"
	StateLost         = "lost"
)

// Message is a single retained topic/payload pair.
type Message struct {
	Topic   string
	Payload string
}

// Topics builds Homie topics for one device.
type Topics struct {
	Base   string // e.g. "homie"
	Device string // e.g. "garage-door"
}

// DeviceAttr returns the topic of a device attribute, e.g. "$state".
func (t Topics) DeviceAttr(attr string) string {
	return t.Base + "/" + t.Device + "/" + attr
}

// Property returns the value topic of a node property.
func (t Topics) Property(node, property string) string {
	return t.Base + "/" + t.Device + "/" + node + "/" + property
}

// Set returns the command topic of a settable node property.
func (t Topics) Set(node, property string) string {
	return t.Property(node, property) + "/set"
}

// ParseSet extracts node and property from a command topic of this device.
func (t Topics) ParseSet(topic string) (node, property string, ok bool) {
	prefix := t.Base + "/" + t.Device + "/"
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, "/set") {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(topic, prefix), "/set"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type propertyAd struct {
	id       string
	name     string
	datatype string
	format   string
	unit     string
	settable bool
}

type nodeAd struct {
	id         string
	name       string
	nodeType   string
	properties []propertyAd
}

var nodes = []nodeAd{
	{
		id:       logic.NodeOpener,
		name:     "Relay",
		nodeType: "switch",
		properties: []propertyAd{
			{id: logic.PropertyButton, name: "Button", datatype: "boolean", settable: true},
			{id: logic.PropertyDoor, name: "Door", datatype: "string", format: "%s"},
		},
	},
	{
		id:       logic.NodeEnvironment,
		name:     "Multi-Sensor",
		nodeType: "sensor",
		properties: []propertyAd{
			{id: logic.PropertyTemperature, name: "Temperature", datatype: "float", format: "%.1f", unit: "°F"},
			{id: logic.PropertyHumidity, name: "Humidity", datatype: "float", format: "%.1f", unit: "%"},
		},
	},
}

// Advertisement returns the retained attribute messages describing the device,
// its nodes and their properties. $state is not included.
func Advertisement(t Topics, d Device) []Message {
	nodeIDs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		nodeIDs = append(nodeIDs, n.id)
	}

	msgs := []Message{
		{t.DeviceAttr("$homie"), HomieVersion},
		{t.DeviceAttr("$name"), d.Name},
		{t.DeviceAttr("$nodes"), strings.Join(nodeIDs, ",")},
		{t.DeviceAttr("$implementation"), d.FirmwareName},
		{t.DeviceAttr("$fw/name"), d.FirmwareName},
		{t.DeviceAttr("$fw/version"), d.FirmwareVersion},
		{t.DeviceAttr("$stats"), "uptime"},
		{t.DeviceAttr("$stats/interval"), strconv.Itoa(int(d.StatsInterval / time.Second))},
	}

	for _, n := range nodes {
		propIDs := make([]string, 0, len(n.properties))
		for _, p := range n.properties {
			propIDs = append(propIDs, p.id)
		}
		base := t.DeviceAttr(n.id)
		msgs = append(msgs,
			Message{base + "/$name", n.name},
			Message{base + "/$type", n.nodeType},
			Message{base + "/$properties", strings.Join(propIDs, ",")},
		)
		for _, p := range n.properties {
			pb := base + "/" + p.id
			msgs = append(msgs,
				Message{pb + "/$name", p.name},
				Message{pb + "/$datatype", p.datatype},
			)
			if p.format != "" {
				msgs = append(msgs, Message{pb + "/$format", p.format})
			}
			if p.unit != "" {
				msgs = append(msgs, Message{pb + "/$unit", p.unit})
			}
			if p.settable {
				msgs = append(msgs, Message{pb + "/$settable", "true"})
			}
		}
	}

	return msgs
}

// StatsMessages returns the $stats messages for the given uptime.
func StatsMessages(t Topics, uptime, interval time.Duration) []Message {
	return []Message{
		{t.DeviceAttr("$stats/uptime"), strconv.FormatInt(int64(uptime/time.Second), 10)},
		{t.DeviceAttr("$stats/interval"), strconv.FormatInt(int64(interval/time.Second), 10)},
	}
}
