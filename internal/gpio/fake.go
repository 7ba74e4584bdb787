package gpio

import "errors"

// FakeReader is a test double that returns scripted sensor levels.
type FakeReader struct {
	// Samples contains scripted raw levels to return (true = HIGH).
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeOutput is a test double that records relay writes.
type FakeOutput struct {
	// Writes contains every value passed to Set, in order.
	Writes []bool

	// Active is the last value written.
	Active bool

	// SetError, if set, will be returned by Set (the write is still recorded).
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates an idle FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the write.
func (f *FakeOutput) Set(active bool) error {
	f.Writes = append(f.Writes, active)
	f.Active = active
	return f.SetError
}

// Close drives the fake idle and marks it closed.
func (f *FakeOutput) Close() error {
	f.Active = false
	f.Closed = true
	return nil
}
