package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/reflow-oven/internal/logic"
)

func TestFakeThermocoupleRead(t *testing.T) {
	samples := []logic.SensorSample{
		{ValueC: 20, Valid: true},
		{ValueC: 21.5, Valid: true},
		logic.InvalidSample,
	}

	f := NewFakeThermocouple(samples...)

	for i, want := range samples {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got.Valid != want.Valid || (want.Valid && got.ValueC != want.ValueC) {
			t.Errorf("sample %d: expected %+v, got %+v", i, want, got)
		}
	}

	// Further reads repeat the last sample
	got, _ := f.Read()
	if got.Valid {
		t.Errorf("repeat: expected invalid sample, got %+v", got)
	}
	if f.Reads != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads)
	}
}

func TestFakeThermocoupleNoSamples(t *testing.T) {
	f := NewFakeThermocouple()

	s, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
	if s.Valid {
		t.Error("sample should be invalid on error")
	}
}

func TestFakeThermocoupleError(t *testing.T) {
	f := Constant(100)
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeThermocoupleReset(t *testing.T) {
	f := NewFakeThermocouple(logic.SensorSample{ValueC: 1, Valid: true}, logic.SensorSample{ValueC: 2, Valid: true})

	f.Read()
	f.Reset()

	s, _ := f.Read()
	if s.ValueC != 1 {
		t.Errorf("after reset: expected 1, got %v", s.ValueC)
	}
}

func TestFakeRelay(t *testing.T) {
	r := NewFakeRelay()
	if r.On {
		t.Error("should be off initially")
	}

	r.Set(true)
	r.Set(false)
	r.Set(true)
	if !r.On {
		t.Error("expected on after last write")
	}
	if len(r.Writes) != 3 {
		t.Errorf("expected 3 writes, got %d", len(r.Writes))
	}

	r.SetError = errors.New("bus error")
	if err := r.Set(false); err == nil {
		t.Error("expected error")
	}
	if !r.On {
		t.Error("failed write must not change state")
	}

	r.Close()
	if r.On || !r.Closed {
		t.Error("Close should drive off and mark closed")
	}
}
