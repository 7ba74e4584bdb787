// Package config loads the garage-door daemon configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// GARAGE_* environment variables, and are validated before use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/garage-door/internal/env"
	"github.com/sweeney/garage-door/internal/gpio"
	"github.com/sweeney/garage-door/internal/logic"
)

// Config is the root configuration structure.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	Timing      TimingConfig      `yaml:"timing"`
	Environment EnvironmentConfig `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig identifies the node on the bus.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig `yaml:"broker"`
	Auth      MQTTAuthConfig   `yaml:"auth"`
	QoS       int              `yaml:"qos"`
	BaseTopic string           `yaml:"base_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// GPIOConfig describes the sensor and relay wiring.
type GPIOConfig struct {
	Chip           string `yaml:"chip"`
	SensorPin      int    `yaml:"sensor_pin"`
	RelayPin       int    `yaml:"relay_pin"`
	OpenWhenHigh   bool   `yaml:"open_when_high"`
	RelayActiveLow bool   `yaml:"relay_active_low"`
	EdgeEvents     bool   `yaml:"edge_events"`
}

// TimingConfig holds the control loop timings.
type TimingConfig struct {
	PollMs          int `yaml:"poll_ms"`
	DebounceMs      int `yaml:"debounce_ms"`
	PulseDurationMs int `yaml:"pulse_duration_ms"`
	StatsIntervalS  int `yaml:"stats_interval_s"`
}

// EnvironmentConfig configures the temperature/humidity sensor.
type EnvironmentConfig struct {
	Enabled bool   `yaml:"enabled"`
	IIORoot string `yaml:"iio_root"`
	// Device is an explicit IIO device directory; empty searches IIORoot.
	Device string `yaml:"device"`
}

// HTTPConfig configures the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, if path is not empty
//  3. Environment variables (GARAGE_SECTION_KEY)
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the deployment defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "garage-door",
			Name: "Garage Door",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "garage-door",
			},
			QoS:       1,
			BaseTopic: "homie",
		},
		GPIO: GPIOConfig{
			Chip:         gpio.DefaultChip,
			SensorPin:    gpio.DefaultSensorPin,
			RelayPin:     gpio.DefaultRelayPin,
			OpenWhenHigh: true,
		},
		Timing: TimingConfig{
			PollMs:          10,
			DebounceMs:      int(logic.DefaultDebounce / time.Millisecond),
			PulseDurationMs: int(logic.DefaultPulseDuration / time.Millisecond),
			StatsIntervalS:  int(logic.DefaultStatsInterval / time.Second),
		},
		Environment: EnvironmentConfig{
			Enabled: true,
			IIORoot: env.DefaultIIORoot,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GARAGE_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	if v := os.Getenv("GARAGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GARAGE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GARAGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GARAGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GARAGE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	if v := os.Getenv("GARAGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GARAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	} else if strings.ContainsAny(c.Device.ID, "/+#$ ") {
		errs = append(errs, "device.id must not contain '/', '+', '#', '$' or spaces")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.BaseTopic == "" {
		errs = append(errs, "mqtt.base_topic is required")
	}

	if c.GPIO.Chip == "" {
		errs = append(errs, "gpio.chip is required")
	}
	if c.GPIO.SensorPin < 0 || c.GPIO.RelayPin < 0 {
		errs = append(errs, "gpio pins must not be negative")
	}
	if c.GPIO.SensorPin == c.GPIO.RelayPin {
		errs = append(errs, "gpio.sensor_pin and gpio.relay_pin must differ")
	}

	if c.Timing.PollMs <= 0 {
		errs = append(errs, "timing.poll_ms must be positive")
	}
	if c.Timing.DebounceMs <= 0 {
		errs = append(errs, "timing.debounce_ms must be positive")
	}
	if c.Timing.PulseDurationMs <= 0 {
		errs = append(errs, "timing.pulse_duration_ms must be positive")
	}
	if c.Timing.StatsIntervalS < 0 {
		errs = append(errs, "timing.stats_interval_s must not be negative")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Poll returns the sensor polling interval.
func (t TimingConfig) Poll() time.Duration {
	return time.Duration(t.PollMs) * time.Millisecond
}

// Debounce returns the sensor stability window.
func (t TimingConfig) Debounce() time.Duration {
	return time.Duration(t.DebounceMs) * time.Millisecond
}

// PulseDuration returns the relay hold time.
func (t TimingConfig) PulseDuration() time.Duration {
	return time.Duration(t.PulseDurationMs) * time.Millisecond
}

// StatsInterval returns the environment reporting cadence. Zero disables it.
func (t TimingConfig) StatsInterval() time.Duration {
	return time.Duration(t.StatsIntervalS) * time.Second
}

// BrokerURL returns the paho broker URL for the configured host.
func (m MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if m.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, m.Broker.Host, m.Broker.Port)
}
