package gpio

import (
	"errors"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// FakeRelay is a test double that records relay writes.
type FakeRelay struct {
	// On is the last successfully written state.
	On bool

	// Writes contains every successful Set value in order.
	Writes []bool

	// SetError, if set, will be returned by Set and the state is not changed.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeRelay creates a FakeRelay in the off state.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Set records the write.
func (f *FakeRelay) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.Writes = append(f.Writes, on)
	return nil
}

// Close drives the relay off and marks it closed.
func (f *FakeRelay) Close() error {
	f.On = false
	f.Closed = true
	return nil
}

// FakeThermocouple is a test double that returns scripted readings.
type FakeThermocouple struct {
	// Samples contains scripted readings to return.
	// Each call to Read() consumes the next sample.
	Samples []logic.SensorSample

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeThermocouple creates a FakeThermocouple with the given samples.
func NewFakeThermocouple(samples ...logic.SensorSample) *FakeThermocouple {
	return &FakeThermocouple{Samples: samples}
}

// Constant returns a thermocouple that always reads c (valid).
func Constant(c float64) *FakeThermocouple {
	return NewFakeThermocouple(logic.SensorSample{ValueC: c, Valid: true})
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeThermocouple) Read() (logic.SensorSample, error) {
	f.Reads++
	if f.ReadError != nil {
		return logic.InvalidSample, f.ReadError
	}

	if len(f.Samples) == 0 {
		return logic.InvalidSample, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the thermocouple as closed.
func (f *FakeThermocouple) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the thermocouple to the beginning of samples.
func (f *FakeThermocouple) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}

var (
	_ Relay        = (*FakeRelay)(nil)
	_ Thermocouple = (*FakeThermocouple)(nil)
)
