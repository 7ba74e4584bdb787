// Package influx records door events and environment readings in InfluxDB.
//
// It is optional telemetry next to MQTT: writes are non-blocking and
// batched by the client library, and failures never reach the run loop.
// Async write errors are delivered through SetOnError.
package influx
