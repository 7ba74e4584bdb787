// Package env reads the ambient temperature and humidity sensor.
//
// The real implementation reads a DHT11/DHT22 through the Linux IIO
// "dht11" driver (dtoverlay=dht11), which exposes the last conversion
// under /sys/bus/iio/devices. The fake implementation allows testing
// without hardware.
package env

import (
	"errors"

	"github.com/sweeney/garage-door/internal/logic"
)

// Reader reads one environment sample.
type Reader interface {
	// Read returns the current reading. A channel that could not be read is
	// reported as NaN together with a non-nil error; callers decide whether
	// to use the partial reading.
	Read() (logic.Reading, error)
}

// ErrNoDevice is returned when no matching IIO device is found.
var ErrNoDevice = errors.New("env: no dht11 iio device found")

// DefaultIIORoot is where the kernel lists IIO devices.
const DefaultIIORoot = "/sys/bus/iio/devices"
