// Command garage-door runs a Homie garage door opener on a Raspberry Pi:
// it reports the door sensor, pulses the opener relay on command and
// publishes temperature and humidity over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/garage-door/internal/config"
	"github.com/sweeney/garage-door/internal/env"
	"github.com/sweeney/garage-door/internal/gpio"
	"github.com/sweeney/garage-door/internal/influx"
	"github.com/sweeney/garage-door/internal/logging"
	"github.com/sweeney/garage-door/internal/logic"
	"github.com/sweeney/garage-door/internal/mqtt"
	"github.com/sweeney/garage-door/internal/node"
	"github.com/sweeney/garage-door/internal/status"
	"github.com/sweeney/garage-door/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const firmwareName = "garage-door"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:           "garage-door",
		Short:         "Garage door opener and environment monitor for MQTT",
		Version:       version,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(configPath, debug)
			if err != nil {
				return err
			}
			return run(cfg, log)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (optional; defaults and GARAGE_* env vars apply)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(stateCmd(&configPath), pulseCmd(&configPath))
	return root
}

// setup loads configuration and builds the logger.
func setup(configPath string, debug bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, logging.New(cfg.Logging, version), nil
}

func run(cfg *config.Config, log *slog.Logger) error {
	sensor, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.SensorPin, cfg.GPIO.EdgeEvents)
	if err != nil {
		return fmt.Errorf("init door sensor: %w", err)
	}
	output, err := gpio.NewRealOutput(cfg.GPIO.Chip, cfg.GPIO.RelayPin, cfg.GPIO.RelayActiveLow)
	if err != nil {
		sensor.Close()
		return fmt.Errorf("init relay: %w", err)
	}

	opts := node.Options{
		Sensor:   sensor,
		Relay:    output,
		Env:      openEnvironment(cfg.Environment, log),
		Polarity: logic.Polarity{OpenWhenHigh: cfg.GPIO.OpenWhenHigh},
		Debounce: cfg.Timing.Debounce(),
		Pulse:    cfg.Timing.PulseDuration(),
		Logger:   log,
	}

	if client, err := influx.Connect(cfg.InfluxDB, cfg.Device.ID); err == nil {
		client.SetOnError(func(err error) {
			log.Warn("influxdb write failed", "error", err)
		})
		defer client.Close()
		opts.Recorder = client
		log.Info("influxdb telemetry enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else if !errors.Is(err, influx.ErrDisabled) {
		log.Warn("influxdb unavailable, continuing without telemetry", "error", err)
	}

	bridge, err := mqtt.NewRealBridge(mqtt.Options{
		Broker:   cfg.MQTT.BrokerURL(),
		ClientID: cfg.MQTT.Broker.ClientID,
		Username: cfg.MQTT.Auth.Username,
		Password: cfg.MQTT.Auth.Password,
		QoS:      byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0..2
		Topics:   mqtt.Topics{Base: cfg.MQTT.BaseTopic, Device: cfg.Device.ID},
		Device: mqtt.Device{
			ID:              cfg.Device.ID,
			Name:            cfg.Device.Name,
			FirmwareName:    firmwareName,
			FirmwareVersion: version,
			StatsInterval:   cfg.Timing.StatsInterval(),
		},
		Logger: log,
	})
	if err != nil {
		output.Close()
		sensor.Close()
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer bridge.Close()

	opts.Publisher = bridge
	n := node.New(opts)
	defer n.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceID:        cfg.Device.ID,
		PollMs:          cfg.Timing.Poll().Milliseconds(),
		DebounceMs:      cfg.Timing.Debounce().Milliseconds(),
		PulseDurationMs: cfg.Timing.PulseDuration().Milliseconds(),
		StatsIntervalS:  int64(cfg.Timing.StatsInterval() / time.Second),
		Broker:          cfg.MQTT.BrokerURL(),
		HTTPAddr:        cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	log.Info("started",
		"device", cfg.Device.ID,
		"broker", cfg.MQTT.BrokerURL(),
		"poll", cfg.Timing.Poll(),
		"debounce", cfg.Timing.Debounce(),
		"pulse", cfg.Timing.PulseDuration(),
		"stats_interval", cfg.Timing.StatsInterval(),
	)

	ticker := time.NewTicker(cfg.Timing.Poll())
	defer ticker.Stop()
	// A nil channel never fires, so a zero interval disables statistics.
	var statsC <-chan time.Time
	if interval := cfg.Timing.StatsInterval(); interval > 0 {
		statsTicker := time.NewTicker(interval)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(n, bridge, bridge, tracker, log, time.Now, ticker.C, statsC, sigCh)
}

// openEnvironment returns the environment reader, or nil when disabled or
// no sensor is present.
func openEnvironment(cfg config.EnvironmentConfig, log *slog.Logger) env.Reader {
	if !cfg.Enabled {
		return nil
	}
	dir := cfg.Device
	if dir == "" {
		found, err := env.FindDevice(cfg.IIORoot)
		if err != nil {
			log.Warn("environment sensor disabled", "error", err)
			return nil
		}
		dir = found
	}
	log.Info("environment sensor", "device", dir)
	return env.NewSysfsReader(dir)
}

// runLoop owns the node. Ticks, commands and lifecycle events are handled
// one at a time, so the node needs no locking.
func runLoop(n *node.Node, bridge mqtt.Bridge, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, log *slog.Logger, now func() time.Time, tick, stats <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()

	for {
		select {
		case s := <-sig:
			log.Info("shutting down", "signal", signalName(s))
			syncTracker(tracker, n, mqttStatus)
			log.Info("final status", "status", string(status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN")))
			return nil

		case <-tick:
			n.Tick(now())

		case cmd := <-bridge.Commands():
			log.Debug("command received", "node", cmd.Node, "property", cmd.Property, "value", cmd.Value)
			n.HandleCommand(cmd, now())

		case evt := <-bridge.Lifecycle():
			t := now()
			n.HandleLifecycle(evt, t)
			// Statistics go out on every connect, then on the stats interval.
			if evt == logic.LifecycleMQTTReady {
				sendStatistics(n, bridge, tracker, log, t.Sub(startTime), t)
			}

		case <-stats:
			t := now()
			sendStatistics(n, bridge, tracker, log, t.Sub(startTime), t)
		}

		syncTracker(tracker, n, mqttStatus)
	}
}

func sendStatistics(n *node.Node, bridge mqtt.Bridge, tracker *status.Tracker, log *slog.Logger, uptime time.Duration, t time.Time) {
	if err := bridge.PublishStats(uptime); err != nil {
		log.Warn("stats publish failed", "error", err)
	}
	n.HandleLifecycle(logic.LifecycleSendingStatistics, t)

	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	snap := tracker.Snapshot()
	log.Debug("statistics", "status", string(status.FormatStatusEvent(snap, logic.LifecycleSendingStatistics.String())))
}

func syncTracker(tracker *status.Tracker, n *node.Node, mqttStatus mqtt.ConnectionStatus) {
	s := n.Snapshot()
	tracker.Update(s.Door, s.Relay, s.Baselined, s.Counts)
	if s.Reading != nil {
		tracker.SetReading(*s.Reading, s.ReadingAt)
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
