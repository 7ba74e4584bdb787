package env

import "github.com/sweeney/garage-door/internal/logic"

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Readings contains scripted readings; each call consumes the next one.
	// If exhausted, the last reading is returned repeatedly.
	Readings []logic.Reading

	// ReadError, if set, is returned alongside the reading.
	ReadError error

	// Calls counts Read invocations.
	Calls int

	index int
}

// NewFakeReader creates a FakeReader with the given readings.
func NewFakeReader(readings ...logic.Reading) *FakeReader {
	return &FakeReader{Readings: readings}
}

// Read returns the next scripted reading.
func (f *FakeReader) Read() (logic.Reading, error) {
	f.Calls++
	if len(f.Readings) == 0 {
		return logic.Reading{}, f.ReadError
	}
	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r, f.ReadError
}
