package mqtt

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/garage-door/internal/logic"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
)

// Options configures a RealBridge.
type Options struct {
	Broker   string // e.g. "tcp://192.168.1.200:1883"
	ClientID string
	Username string
	Password string
	QoS      byte
	Topics   Topics
	Device   Device
	Logger   *slog.Logger
}

// RealBridge publishes to and receives commands from an actual MQTT broker.
type RealBridge struct {
	client    paho.Client
	opts      Options
	log       *slog.Logger
	commands  chan Command
	lifecycle chan logic.LifecycleEvent
	connected atomic.Bool
}

// NewRealBridge connects to the broker and advertises the device.
//
// The connection is retried in the background, so a broker that is down at
// startup is not fatal; the advertisement and command subscription are
// (re)established on every connect.
func NewRealBridge(opts Options) (*RealBridge, error) {
	b := newBridge(opts)

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(opts.Topics.DeviceAttr("$state"), StateLost, opts.QoS, true).
		SetOnConnectHandler(b.handleConnect).
		SetConnectionLostHandler(b.handleConnectionLost)

	b.client = paho.NewClient(po)
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		b.log.Warn("broker not reachable yet, retrying in background", "broker", opts.Broker)
		return b, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return b, nil
}

// newBridge builds a RealBridge without a client. A nil Logger discards.
func newBridge(opts Options) *RealBridge {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RealBridge{
		opts:      opts,
		log:       log.With("component", "mqtt"),
		commands:  make(chan Command, commandBuffer),
		lifecycle: make(chan logic.LifecycleEvent, commandBuffer),
	}
}

// handleConnect runs on a paho goroutine after every (re)connect.
func (b *RealBridge) handleConnect(c paho.Client) {
	t := b.opts.Topics

	c.Publish(t.DeviceAttr("$state"), b.opts.QoS, true, StateInit)
	for _, m := range Advertisement(t, b.opts.Device) {
		c.Publish(m.Topic, b.opts.QoS, true, m.Payload)
	}

	setTopic := t.Set(logic.NodeOpener, logic.PropertyButton)
	token := c.Subscribe(setTopic, b.opts.QoS, b.handleMessage)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		b.log.Error("subscribe failed", "topic", setTopic, "error", token.Error())
	}

	c.Publish(t.DeviceAttr("$state"), b.opts.QoS, true, StateReady)

	b.connected.Store(true)
	b.log.Info("connected", "broker", b.opts.Broker)
	b.notify(logic.LifecycleMQTTReady)
}

func (b *RealBridge) handleConnectionLost(_ paho.Client, err error) {
	b.connected.Store(false)
	b.log.Warn("connection lost", "error", err)
	b.notify(logic.LifecycleMQTTDisconnected)
}

// handleMessage converts a set message into a Command for the run loop.
func (b *RealBridge) handleMessage(_ paho.Client, msg paho.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic recovered", "topic", msg.Topic(), "panic", r)
		}
	}()

	node, property, ok := b.opts.Topics.ParseSet(msg.Topic())
	if !ok {
		b.log.Warn("ignoring message on unexpected topic", "topic", msg.Topic())
		return
	}

	cmd := Command{Node: node, Property: property, Value: string(msg.Payload())}
	select {
	case b.commands <- cmd:
	default:
		b.log.Warn("command queue full, dropping command", "property", property, "value", cmd.Value)
	}
}

func (b *RealBridge) notify(evt logic.LifecycleEvent) {
	select {
	case b.lifecycle <- evt:
	default:
		b.log.Warn("lifecycle queue full, dropping event", "event", evt.String())
	}
}

// Publish sends a property value, retained, without waiting for delivery.
func (b *RealBridge) Publish(event logic.Event) error {
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	topic := b.opts.Topics.Property(event.Node, event.Property)
	b.watch(topic, b.client.Publish(topic, b.opts.QoS, true, event.Value))
	return nil
}

// PublishStats sends $stats/uptime and $stats/interval.
func (b *RealBridge) PublishStats(uptime time.Duration) error {
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	for _, m := range StatsMessages(b.opts.Topics, uptime, b.opts.Device.StatsInterval) {
		b.watch(m.Topic, b.client.Publish(m.Topic, b.opts.QoS, true, m.Payload))
	}
	return nil
}

// watch logs the outcome of an in-flight publish off the caller's goroutine.
func (b *RealBridge) watch(topic string, token paho.Token) {
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			b.log.Warn("publish timeout", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			b.log.Warn("publish failed", "topic", topic, "error", err)
		}
	}()
}

// Commands delivers inbound set commands.
func (b *RealBridge) Commands() <-chan Command {
	return b.commands
}

// Lifecycle delivers connect and disconnect notifications.
func (b *RealBridge) Lifecycle() <-chan logic.LifecycleEvent {
	return b.lifecycle
}

// IsConnected reports whether the broker connection is up.
func (b *RealBridge) IsConnected() bool {
	return b.connected.Load() && b.client.IsConnectionOpen()
}

// Close publishes $state=disconnected and disconnects from the broker.
func (b *RealBridge) Close() error {
	if b.client.IsConnectionOpen() {
		token := b.client.Publish(b.opts.Topics.DeviceAttr("$state"), b.opts.QoS, true, StateDisconnected)
		token.WaitTimeout(publishTimeout)
	}
	b.client.Disconnect(disconnectQuiesce)
	b.connected.Store(false)
	return nil
}
