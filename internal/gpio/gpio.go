// Package gpio provides door sensor input and relay output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "sync/atomic"

// Reader reads the raw door sensor line.
type Reader interface {
	// Read returns the raw line level (true = HIGH).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Output drives the opener relay.
type Output interface {
	// Set drives the relay active (true) or idle (false).
	Set(active bool) error

	// Close releases GPIO resources, leaving the relay idle.
	Close() error
}

// Defaults (BCM numbering on gpiochip0).
const (
	DefaultChip      = "gpiochip0"
	DefaultSensorPin = 17 // reed switch to ground
	DefaultRelayPin  = 27 // relay module input
)

// level holds an edge-tracked line level. Zero means unknown. Events always
// win over the initial seed, whichever lands first.
type level struct {
	v atomic.Int32
}

const (
	levelLow  int32 = 1
	levelHigh int32 = 2
)

func encodeLevel(high bool) int32 {
	if high {
		return levelHigh
	}
	return levelLow
}

// seed sets the level only if no edge has been recorded yet.
func (l *level) seed(high bool) {
	l.v.CompareAndSwap(0, encodeLevel(high))
}

func (l *level) set(high bool) {
	l.v.Store(encodeLevel(high))
}

func (l *level) high() bool {
	return l.v.Load() == levelHigh
}
