package influx

import (
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/garage-door/internal/logic"
)

// Measurement names.
const (
	MeasurementEnvironment = "garage_environment"
	MeasurementEvent       = "garage_event"
)

// readingPoint builds an environment point, or nil when neither value is valid.
// Line protocol has no NaN, so invalid channels are left out.
func readingPoint(deviceID string, r logic.Reading, at time.Time) *write.Point {
	fields := map[string]interface{}{}
	if !math.IsNaN(r.TemperatureF) && !math.IsInf(r.TemperatureF, 0) {
		fields["temperature_f"] = r.TemperatureF
	}
	if !math.IsNaN(r.Humidity) && !math.IsInf(r.Humidity, 0) {
		fields["humidity"] = r.Humidity
	}
	if len(fields) == 0 {
		return nil
	}
	return write.NewPoint(
		MeasurementEnvironment,
		map[string]string{"device_id": deviceID},
		fields,
		at,
	)
}

func eventPoint(deviceID string, e logic.Event) *write.Point {
	return write.NewPoint(
		MeasurementEvent,
		map[string]string{
			"device_id": deviceID,
			"node":      e.Node,
			"property":  e.Property,
		},
		map[string]interface{}{"value": e.Value},
		e.Timestamp,
	)
}
