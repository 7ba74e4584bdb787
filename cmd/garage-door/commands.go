package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/garage-door/internal/env"
	"github.com/sweeney/garage-door/internal/gpio"
	"github.com/sweeney/garage-door/internal/logic"
)

func stateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current door sensor and environment reading, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath, false)
			if err != nil {
				return err
			}

			sensor, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.SensorPin, false)
			if err != nil {
				return fmt.Errorf("init door sensor: %w", err)
			}
			defer sensor.Close()

			return printState(cmd.OutOrStdout(), sensor, openEnvironment(cfg.Environment, log),
				logic.Polarity{OpenWhenHigh: cfg.GPIO.OpenWhenHigh})
		},
	}
}

// printState writes one raw sensor read and, when available, one
// environment reading. The door level is not debounced.
func printState(w io.Writer, sensor gpio.Reader, envReader env.Reader, polarity logic.Polarity) error {
	raw, err := sensor.Read()
	if err != nil {
		return fmt.Errorf("read door sensor: %w", err)
	}
	level := logic.Level(raw)
	fmt.Fprintf(w, "Door: %s (%s)\n", polarity.State(level), level)

	if envReader == nil {
		return nil
	}
	r, err := envReader.Read()
	fmt.Fprintf(w, "Temperature: %s °F\n", formatValue(r.TemperatureF))
	fmt.Fprintf(w, "Humidity: %s %%\n", formatValue(r.Humidity))
	if err != nil {
		fmt.Fprintf(w, "Environment error: %v\n", err)
	}
	return nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.1f", v)
}

func pulseCmd(configPath *string) *cobra.Command {
	var duration time.Duration

	c := &cobra.Command{
		Use:   "pulse",
		Short: "Pulse the opener relay once without MQTT (for wiring checks)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath, false)
			if err != nil {
				return err
			}
			if duration <= 0 {
				duration = cfg.Timing.PulseDuration()
			}

			output, err := gpio.NewRealOutput(cfg.GPIO.Chip, cfg.GPIO.RelayPin, cfg.GPIO.RelayActiveLow)
			if err != nil {
				return fmt.Errorf("init relay: %w", err)
			}

			log.Info("pulsing relay", "pin", cfg.GPIO.RelayPin, "duration", duration)
			err = pulse(output, duration, time.Sleep)
			fmt.Fprintln(cmd.OutOrStdout(), "pulsed relay for", duration)
			return err
		},
	}

	c.Flags().DurationVarP(&duration, "duration", "d", 0, "Pulse length (default from config, 250ms)")
	return c
}

// pulse drives the relay active for d and then releases it. The output is
// closed, and so left idle, even when activation fails.
func pulse(output gpio.Output, d time.Duration, sleep func(time.Duration)) error {
	if err := output.Set(true); err != nil {
		return errors.Join(fmt.Errorf("activate relay: %w", err), output.Close())
	}
	sleep(d)
	return errors.Join(output.Set(false), output.Close())
}
