package logic

import (
	"strconv"
	"time"
)

// FormatReading returns the temperature and humidity events for a reading.
// Values are formatted with one decimal. Invalid sensor values (NaN) are
// published as-is rather than suppressed.
func FormatReading(r Reading, now time.Time) []Event {
	return []Event{
		{
			Timestamp: now,
			Node:      NodeEnvironment,
			Property:  PropertyTemperature,
			Value:     formatFloat(r.TemperatureF),
		},
		{
			Timestamp: now,
			Node:      NodeEnvironment,
			Property:  PropertyHumidity,
			Value:     formatFloat(r.Humidity),
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// CelsiusToFahrenheit converts a temperature in °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
