package env

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/garage-door/internal/logic"
)

// IIO channel files. Values are in thousandths of a unit.
const (
	tempFile     = "in_temp_input"
	humidityFile = "in_humidityrelative_input"
	nameFile     = "name"
	driverName   = "dht11"
)

// SysfsReader reads a DHT sensor through its IIO sysfs directory.
type SysfsReader struct {
	dir string
}

// NewSysfsReader returns a reader for the given IIO device directory
// (e.g. /sys/bus/iio/devices/iio:device0).
func NewSysfsReader(dir string) *SysfsReader {
	return &SysfsReader{dir: dir}
}

// FindDevice returns the first IIO device under root whose driver name is dht11.
func FindDevice(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("list iio devices: %w", err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		name, err := os.ReadFile(filepath.Join(dir, nameFile))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(name)) == driverName {
			return dir, nil
		}
	}
	return "", ErrNoDevice
}

// Read triggers a conversion and returns the reading in °F and %RH.
// The driver frequently fails a conversion with EIO; the affected channel is
// returned as NaN.
func (r *SysfsReader) Read() (logic.Reading, error) {
	var errs []error

	tempC, err := r.readChannel(tempFile)
	if err != nil {
		errs = append(errs, fmt.Errorf("read temperature: %w", err))
	}
	humidity, err := r.readChannel(humidityFile)
	if err != nil {
		errs = append(errs, fmt.Errorf("read humidity: %w", err))
	}

	return logic.Reading{
		TemperatureF: logic.CelsiusToFahrenheit(tempC),
		Humidity:     humidity,
	}, errors.Join(errs...)
}

func (r *SysfsReader) readChannel(name string) (float64, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return math.NaN(), err
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("parse %s: %w", name, err)
	}
	return float64(milli) / 1000, nil
}
