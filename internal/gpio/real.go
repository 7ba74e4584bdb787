//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the door sensor from actual hardware using the Linux GPIO
// character device.
//
// In edge mode the kernel delivers edge events on a gpiocdev goroutine. The
// handler and the initial seed write raw, Read loads it; an edge that lands
// before the seed is not overwritten.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	edge bool
	raw  level
}

// NewRealReader requests the sensor line as an input with pull-up, so an open
// reed switch reads HIGH. With edge set, the level is tracked from edge events
// instead of being read on every call.
func NewRealReader(chipName string, pin int, edge bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip, edge: edge}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if edge {
		opts = append(opts, gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(r.handleEvent))
	}

	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request sensor pin %d: %w", pin, err)
	}
	r.line = line

	if edge {
		// Seed the level; later changes arrive as events.
		v, err := line.Value()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("read sensor pin %d: %w", pin, err)
		}
		r.raw.seed(v != 0)
	}

	return r, nil
}

func (r *RealReader) handleEvent(evt gpiocdev.LineEvent) {
	r.raw.set(evt.Type == gpiocdev.LineEventRisingEdge)
}

// Read returns the raw sensor level (true = HIGH).
func (r *RealReader) Read() (bool, error) {
	if r.edge {
		return r.raw.high(), nil
	}
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read sensor pin: %w", err)
	}
	return v != 0, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sensor pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RealOutput drives the relay through the Linux GPIO character device.
type RealOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutput requests the relay line as an output, initially idle.
// activeLow suits relay modules that energise when their input is pulled low.
func NewRealOutput(chipName string, pin int, activeLow bool) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
	}

	return &RealOutput{chip: chip, line: line}, nil
}

// Set drives the relay active or idle.
func (o *RealOutput) Set(active bool) error {
	v := 0
	if active {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay pin: %w", err)
	}
	return nil
}

// Close drives the relay idle and releases GPIO resources.
// The line is then reconfigured as an input with pull-down, matching the
// Pi boot default, so the relay module is not left driven.
func (o *RealOutput) Close() error {
	var errs []error
	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("idle relay pin: %w", err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
