package node

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sweeney/garage-door/internal/env"
	"github.com/sweeney/garage-door/internal/gpio"
	"github.com/sweeney/garage-door/internal/logic"
	"github.com/sweeney/garage-door/internal/mqtt"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

type fakeRecorder struct {
	events   []logic.Event
	readings []logic.Reading
	err      error
}

func (r *fakeRecorder) WriteEvent(e logic.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *fakeRecorder) WriteReading(reading logic.Reading, _ time.Time) error {
	r.readings = append(r.readings, reading)
	return r.err
}

type harness struct {
	node   *Node
	sensor *gpio.FakeReader
	output *gpio.FakeOutput
	env    *env.FakeReader
	bridge *mqtt.FakeBridge
}

func newHarness(samples []bool, readings ...logic.Reading) *harness {
	h := &harness{
		sensor: gpio.NewFakeReader(samples),
		output: gpio.NewFakeOutput(),
		env:    env.NewFakeReader(readings...),
		bridge: mqtt.NewFakeBridge(),
	}
	h.node = New(Options{
		Sensor:    h.sensor,
		Relay:     h.output,
		Env:       h.env,
		Publisher: h.bridge,
		Polarity:  logic.DefaultPolarity,
		Debounce:  500 * time.Millisecond,
		Pulse:     250 * time.Millisecond,
	})
	return h
}

type span struct {
	high bool
	ms   int
}

// levels builds 10ms samples: each span holds its level for ms milliseconds.
func levels(spans ...span) []bool {
	var out []bool
	for _, s := range spans {
		for i := 0; i < s.ms/10; i++ {
			out = append(out, s.high)
		}
	}
	return out
}

func (h *harness) run(fromMs, toMs int) {
	for ms := fromMs; ms <= toMs; ms += 10 {
		h.node.Tick(at(ms))
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDoorScenarioPublishesTwoEvents(t *testing.T) {
	h := newHarness(levels(span{true, 600}, span{false, 610}))

	h.run(0, 1200)

	got := h.bridge.Values(logic.PropertyDoor)
	if !equal(got, []string{"Open", "Close"}) {
		t.Fatalf("door values: got %v, want [Open Close]", got)
	}
	if !h.bridge.Events[0].Timestamp.Equal(at(500)) {
		t.Errorf("open at %v, want %v", h.bridge.Events[0].Timestamp, at(500))
	}
	if !h.bridge.Events[1].Timestamp.Equal(at(1100)) {
		t.Errorf("close at %v, want %v", h.bridge.Events[1].Timestamp, at(1100))
	}

	snap := h.node.Snapshot()
	if snap.Door != logic.DoorClosed {
		t.Errorf("Door: got %q, want CLOSED", snap.Door)
	}
	if snap.Counts.DoorClosed != 1 || snap.Counts.DoorOpened != 0 {
		t.Errorf("Counts: got %+v, want one close and no open", snap.Counts)
	}
}

func TestDoorEventsUseNodeAndProperty(t *testing.T) {
	h := newHarness(levels(span{false, 600}))

	h.run(0, 590)

	if len(h.bridge.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(h.bridge.Events))
	}
	e := h.bridge.Events[0]
	if e.Node != logic.NodeOpener || e.Property != logic.PropertyDoor || e.Value != "Close" {
		t.Errorf("event: got %+v", e)
	}
}

func TestGlitchDoesNotPublish(t *testing.T) {
	h := newHarness(levels(span{false, 700}, span{true, 10}, span{false, 600}))

	h.run(0, 1300)

	got := h.bridge.Values(logic.PropertyDoor)
	if !equal(got, []string{"Close"}) {
		t.Errorf("door values: got %v, want [Close]", got)
	}
}

func TestRepeatedLevelIsIdempotent(t *testing.T) {
	h := newHarness(levels(span{true, 5000}))

	h.run(0, 4990)

	if n := len(h.bridge.Values(logic.PropertyDoor)); n != 1 {
		t.Errorf("expected 1 door event, got %d", n)
	}
}

func TestPolarityOpenWhenLow(t *testing.T) {
	h := newHarness(levels(span{false, 600}))
	h.node = New(Options{
		Sensor:    h.sensor,
		Relay:     h.output,
		Publisher: h.bridge,
		Polarity:  logic.Polarity{OpenWhenHigh: false},
		Debounce:  500 * time.Millisecond,
	})

	h.run(0, 590)

	got := h.bridge.Values(logic.PropertyDoor)
	if !equal(got, []string{"Open"}) {
		t.Errorf("door values: got %v, want [Open]", got)
	}
}

func TestCommandPulsesRelay(t *testing.T) {
	h := newHarness([]bool{false})

	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}, at(0))

	if !h.output.Active {
		t.Fatal("expected relay active after command")
	}
	if h.node.Snapshot().Relay != logic.RelayActive {
		t.Error("expected ACTIVE state")
	}

	h.node.Tick(at(249))
	if !h.output.Active {
		t.Fatal("relay released before pulse elapsed")
	}

	h.node.Tick(at(250))
	if h.output.Active {
		t.Fatal("expected relay idle at pulse end")
	}

	got := h.bridge.Values(logic.PropertyButton)
	if !equal(got, []string{"true", "false"}) {
		t.Errorf("button values: got %v, want [true false]", got)
	}

	h.node.Tick(at(500))
	if n := len(h.bridge.Values(logic.PropertyButton)); n != 2 {
		t.Errorf("release published more than once: %d button events", n)
	}
	if h.node.Snapshot().Counts.RelayPulses != 1 {
		t.Errorf("RelayPulses: got %d, want 1", h.node.Snapshot().Counts.RelayPulses)
	}
}

func TestRelayWriteFailureNotCommitted(t *testing.T) {
	h := newHarness([]bool{false})
	h.output.SetError = errors.New("pin fault")
	cmd := mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}

	h.node.HandleCommand(cmd, at(0))

	if got := h.bridge.Values(logic.PropertyButton); len(got) != 0 {
		t.Errorf("button values: got %v, want none", got)
	}
	snap := h.node.Snapshot()
	if snap.Relay != logic.RelayIdle {
		t.Errorf("Relay: got %q, want IDLE", snap.Relay)
	}
	if snap.Counts.RelayPulses != 0 {
		t.Errorf("RelayPulses: got %d, want 0", snap.Counts.RelayPulses)
	}

	h.node.Tick(at(250))
	if n := len(h.bridge.Events); n != 0 {
		t.Errorf("expected no release after failed activation, got %d events", n)
	}

	// Once the pin recovers the next command pulses normally.
	h.output.SetError = nil
	h.node.HandleCommand(cmd, at(300))
	h.node.Tick(at(550))
	if got := h.bridge.Values(logic.PropertyButton); !equal(got, []string{"true", "false"}) {
		t.Errorf("button values: got %v, want [true false]", got)
	}
	if h.node.Snapshot().Counts.RelayPulses != 1 {
		t.Errorf("RelayPulses: got %d, want 1", h.node.Snapshot().Counts.RelayPulses)
	}
}

func TestCommandReactivationExtendsPulse(t *testing.T) {
	h := newHarness([]bool{false})
	cmd := mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "ON"}

	h.node.HandleCommand(cmd, at(0))
	h.node.Tick(at(100))
	h.node.HandleCommand(cmd, at(100))

	h.node.Tick(at(250))
	if !h.output.Active {
		t.Fatal("relay released at first window end")
	}

	h.node.Tick(at(349))
	if !h.output.Active {
		t.Fatal("relay released before restarted window end")
	}

	h.node.Tick(at(350))
	if h.output.Active {
		t.Fatal("expected relay idle after restarted window")
	}

	got := h.bridge.Values(logic.PropertyButton)
	if !equal(got, []string{"true", "true", "false"}) {
		t.Errorf("button values: got %v, want [true true false]", got)
	}
	if h.node.Snapshot().Counts.RelayPulses != 1 {
		t.Errorf("RelayPulses: got %d, want 1", h.node.Snapshot().Counts.RelayPulses)
	}
}

func TestFalsyCommandsIgnored(t *testing.T) {
	h := newHarness([]bool{false})

	for _, v := range []string{"false", "off", "", "1", "TRUE"} {
		h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: v}, at(0))
	}

	if len(h.output.Writes) != 0 {
		t.Errorf("expected no relay writes, got %v", h.output.Writes)
	}
	if len(h.bridge.Events) != 0 {
		t.Errorf("expected no events, got %v", h.bridge.Events)
	}
	snap := h.node.Snapshot()
	if snap.Relay != logic.RelayIdle {
		t.Errorf("Relay: got %q, want IDLE", snap.Relay)
	}
	if snap.Counts.RejectedCommands != 5 {
		t.Errorf("RejectedCommands: got %d, want 5", snap.Counts.RejectedCommands)
	}
}

func TestFalsyCommandDoesNotCancelPulse(t *testing.T) {
	h := newHarness([]bool{false})

	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}, at(0))
	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "false"}, at(50))

	if !h.output.Active {
		t.Fatal("falsy command changed relay state")
	}
	h.node.Tick(at(250))
	if h.output.Active {
		t.Fatal("expected release at original window end")
	}
}

func TestUnknownPropertyIgnored(t *testing.T) {
	h := newHarness([]bool{false})

	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyDoor, Value: "true"}, at(0))
	h.node.HandleCommand(mqtt.Command{Node: logic.NodeEnvironment, Property: logic.PropertyButton, Value: "true"}, at(0))

	if len(h.output.Writes) != 0 || len(h.bridge.Events) != 0 {
		t.Errorf("expected no effect, got writes=%v events=%v", h.output.Writes, h.bridge.Events)
	}
	if h.node.Snapshot().Counts.RejectedCommands != 0 {
		t.Error("unknown property should not count as a rejected button command")
	}
}

func TestSendingStatisticsPublishesReading(t *testing.T) {
	h := newHarness([]bool{false}, logic.Reading{TemperatureF: 72.3, Humidity: 45.0})

	h.node.HandleLifecycle(logic.LifecycleSendingStatistics, at(0))

	if len(h.bridge.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(h.bridge.Events))
	}
	if got := h.bridge.Values(logic.PropertyTemperature); !equal(got, []string{"72.3"}) {
		t.Errorf("temperature: got %v, want [72.3]", got)
	}
	if got := h.bridge.Values(logic.PropertyHumidity); !equal(got, []string{"45.0"}) {
		t.Errorf("humidity: got %v, want [45.0]", got)
	}
	for _, e := range h.bridge.Events {
		if e.Node != logic.NodeEnvironment {
			t.Errorf("node: got %q, want %q", e.Node, logic.NodeEnvironment)
		}
	}

	snap := h.node.Snapshot()
	if snap.Reading == nil || snap.Reading.TemperatureF != 72.3 {
		t.Errorf("Reading: got %+v", snap.Reading)
	}
	if !snap.ReadingAt.Equal(at(0)) {
		t.Errorf("ReadingAt: got %v", snap.ReadingAt)
	}
}

func TestInvalidReadingPublishedAsNaN(t *testing.T) {
	h := newHarness([]bool{false}, logic.Reading{TemperatureF: math.NaN(), Humidity: 50})
	h.env.ReadError = errors.New("checksum mismatch")

	h.node.HandleLifecycle(logic.LifecycleSendingStatistics, at(0))

	if got := h.bridge.Values(logic.PropertyTemperature); !equal(got, []string{"NaN"}) {
		t.Errorf("temperature: got %v, want [NaN]", got)
	}
	if got := h.bridge.Values(logic.PropertyHumidity); !equal(got, []string{"50.0"}) {
		t.Errorf("humidity: got %v, want [50.0]", got)
	}
}

func TestOtherLifecycleEventsDoNotPublish(t *testing.T) {
	h := newHarness([]bool{false}, logic.Reading{TemperatureF: 70, Humidity: 40})

	h.node.HandleLifecycle(logic.LifecycleMQTTReady, at(0))
	h.node.HandleLifecycle(logic.LifecycleMQTTDisconnected, at(0))
	h.node.HandleLifecycle(logic.LifecycleEvent(99), at(0))

	if len(h.bridge.Events) != 0 {
		t.Errorf("expected no events, got %v", h.bridge.Events)
	}
	if h.env.Calls != 0 {
		t.Errorf("expected no sensor reads, got %d", h.env.Calls)
	}
}

func TestNoEnvironmentSensor(t *testing.T) {
	bridge := mqtt.NewFakeBridge()
	n := New(Options{
		Sensor:    gpio.NewFakeReader([]bool{false}),
		Relay:     gpio.NewFakeOutput(),
		Publisher: bridge,
		Polarity:  logic.DefaultPolarity,
	})

	n.HandleLifecycle(logic.LifecycleSendingStatistics, at(0))

	if len(bridge.Events) != 0 {
		t.Errorf("expected no events without sensor, got %v", bridge.Events)
	}
}

func TestSensorReadErrorSkipsSample(t *testing.T) {
	h := newHarness([]bool{true})
	h.sensor.ReadError = errors.New("line busy")

	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}, at(0))
	h.run(0, 1000)

	if n := len(h.bridge.Values(logic.PropertyDoor)); n != 0 {
		t.Errorf("expected no door events while sensor fails, got %d", n)
	}
	if h.output.Active {
		t.Error("relay should still release while sensor fails")
	}
	if h.node.Snapshot().Baselined {
		t.Error("expected no baseline without samples")
	}

	h.sensor.ReadError = nil
	h.run(1010, 1510)
	if got := h.bridge.Values(logic.PropertyDoor); !equal(got, []string{"Open"}) {
		t.Errorf("door values after recovery: got %v, want [Open]", got)
	}
}

func TestPublishErrorDoesNotBlockActuation(t *testing.T) {
	h := newHarness([]bool{false})
	h.bridge.PublishError = mqtt.ErrNotConnected

	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}, at(0))
	if !h.output.Active {
		t.Fatal("expected relay active despite publish error")
	}
	h.node.Tick(at(250))
	if h.output.Active {
		t.Fatal("expected relay idle despite publish error")
	}
}

func TestRecorderReceivesEventsAndReadings(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("influx down")}
	h := newHarness(levels(span{true, 600}), logic.Reading{TemperatureF: 60, Humidity: 30})
	h.node.recorder = rec

	h.run(0, 590)
	h.node.HandleLifecycle(logic.LifecycleSendingStatistics, at(600))

	if len(rec.events) != 3 {
		t.Errorf("recorded events: got %d, want 3", len(rec.events))
	}
	if len(rec.readings) != 1 || rec.readings[0].Humidity != 30 {
		t.Errorf("recorded readings: got %+v", rec.readings)
	}
	if len(h.bridge.Events) != 3 {
		t.Errorf("recorder error affected publishing: %d events", len(h.bridge.Events))
	}
}

func TestSnapshotBeforeBaseline(t *testing.T) {
	h := newHarness([]bool{true})

	snap := h.node.Snapshot()
	if snap.Door != logic.DoorUnknown {
		t.Errorf("Door: got %q, want unknown", snap.Door)
	}
	if snap.Relay != logic.RelayIdle {
		t.Errorf("Relay: got %q, want IDLE", snap.Relay)
	}
	if snap.Baselined {
		t.Error("expected Baselined=false")
	}
	if snap.Reading != nil {
		t.Error("expected no reading")
	}
}

func TestDefaults(t *testing.T) {
	bridge := mqtt.NewFakeBridge()
	output := gpio.NewFakeOutput()
	n := New(Options{
		Sensor:    gpio.NewFakeReader([]bool{false}),
		Relay:     output,
		Publisher: bridge,
	})

	n.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}, at(0))
	n.Tick(at(int(logic.DefaultPulseDuration/time.Millisecond) - 1))
	if !output.Active {
		t.Fatal("released before default pulse")
	}
	n.Tick(at(int(logic.DefaultPulseDuration / time.Millisecond)))
	if output.Active {
		t.Fatal("expected release at default pulse")
	}
}

func TestCloseIdlesRelayAndReleasesSensor(t *testing.T) {
	h := newHarness([]bool{false})
	h.node.HandleCommand(mqtt.Command{Node: logic.NodeOpener, Property: logic.PropertyButton, Value: "true"}, at(0))

	if err := h.node.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.output.Active || !h.output.Closed {
		t.Error("expected relay idle and closed")
	}
	if !h.sensor.Closed {
		t.Error("expected sensor closed")
	}
}
