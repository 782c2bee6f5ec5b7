// Package logic contains the pure reflow process control logic.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is counted in ticks or injected via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Phase is one stage of the reflow thermal profile.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhasePreheat  Phase = "PREHEAT"
	PhaseSoak     Phase = "SOAK"
	PhaseReflow   Phase = "REFLOW"
	PhaseCooldown Phase = "COOLDOWN"
)

// Next returns the phase that follows p in the fixed cycle
// Idle -> Preheat -> Soak -> Reflow -> Cooldown -> Idle.
func (p Phase) Next() Phase {
	switch p {
	case PhaseIdle:
		return PhasePreheat
	case PhasePreheat:
		return PhaseSoak
	case PhaseSoak:
		return PhaseReflow
	case PhaseReflow:
		return PhaseCooldown
	default:
		return PhaseIdle
	}
}

// Heating reports whether the regulator may energize the heater in p.
func (p Phase) Heating() bool {
	return p == PhasePreheat || p == PhaseSoak || p == PhaseReflow
}

// Command is an external request crossing into the controller.
type Command string

const (
	CommandNone  Command = ""
	CommandStart Command = "START"
	CommandAbort Command = "ABORT"
)

var (
	// ErrInvalidCommand is returned for a command that does not apply to the
	// current phase. It never changes controller state.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrSensorFault is reported while the thermocouple sample is not trustworthy.
	ErrSensorFault = errors.New("sensor fault")
)

// SensorSample is a single thermocouple reading, captured once per tick.
type SensorSample struct {
	ValueC float64
	Valid  bool
}

// Usable reports whether the sample can drive a heating decision.
func (s SensorSample) Usable() bool {
	return s.Valid && !math.IsNaN(s.ValueC) && !math.IsInf(s.ValueC, 0)
}

// InvalidSample is the sample used when the sensor could not be read at all.
var InvalidSample = SensorSample{ValueC: math.NaN(), Valid: false}

// PhaseSpec is the target and length of one timed phase.
type PhaseSpec struct {
	TargetC       float64
	DurationTicks int
}

// Profile is the per-run configuration. It must not change while a run is active.
type Profile struct {
	Name     string
	AmbientC float64 // Idle target
	Preheat  PhaseSpec
	Soak     PhaseSpec
	Reflow   PhaseSpec
	Cooldown PhaseSpec
}

// Spec returns the phase spec for p. Idle has no duration.
func (pr Profile) Spec(p Phase) PhaseSpec {
	switch p {
	case PhasePreheat:
		return pr.Preheat
	case PhaseSoak:
		return pr.Soak
	case PhaseReflow:
		return pr.Reflow
	case PhaseCooldown:
		return pr.Cooldown
	default:
		return PhaseSpec{TargetC: pr.AmbientC}
	}
}

// Validate checks that every timed phase has a positive duration and a finite target.
func (pr Profile) Validate() error {
	if math.IsNaN(pr.AmbientC) || math.IsInf(pr.AmbientC, 0) {
		return fmt.Errorf("ambient target is not finite")
	}
	for _, p := range []Phase{PhasePreheat, PhaseSoak, PhaseReflow, PhaseCooldown} {
		s := pr.Spec(p)
		if s.DurationTicks <= 0 {
			return fmt.Errorf("%s: duration must be positive, got %d ticks", p, s.DurationTicks)
		}
		if math.IsNaN(s.TargetC) || math.IsInf(s.TargetC, 0) {
			return fmt.Errorf("%s: target is not finite", p)
		}
	}
	return nil
}

// RunState is owned by ProfileClock.
type RunState struct {
	Phase   Phase
	Elapsed int
}

// HeaterState is owned by ThermalRegulator.
type HeaterState struct {
	RelayOn bool
}

// ClockStatus is a read-only view of ProfileClock.
type ClockStatus struct {
	Phase    Phase
	Elapsed  int
	Duration int // 0 for Idle
}

// Status is the full controller snapshot exposed to display and logging.
type Status struct {
	Phase      Phase
	Elapsed    int
	Duration   int
	TargetC    float64
	LastSample SensorSample
	RelayOn    bool
	Fault      error // ErrSensorFault or nil

	// Rejected is set when the command applied this tick was dropped.
	Rejected Command
}

// EventType identifies something the Observer noticed between two statuses.
type EventType string

const (
	EventPhaseChange     EventType = "PHASE_CHANGE"
	EventRelayOn         EventType = "RELAY_ON"
	EventRelayOff        EventType = "RELAY_OFF"
	EventSensorFault     EventType = "SENSOR_FAULT"
	EventSensorOK        EventType = "SENSOR_OK"
	EventCommandRejected EventType = "COMMAND_REJECTED"
)

// Event is a change to be logged or published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	From      Phase // PHASE_CHANGE only
	Phase     Phase
	TargetC   float64
	TempC     float64
	Valid     bool
	RelayOn   bool
	Command   Command // COMMAND_REJECTED only
	RunID     string  // filled in by the caller, empty while idle
}

// EventCounts tracks observed activity since startup.
type EventCounts struct {
	RunsStarted      int
	RunsCompleted    int
	RunsAborted      int
	RelaySwitches    int
	SensorFaults     int
	RejectedCommands int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
