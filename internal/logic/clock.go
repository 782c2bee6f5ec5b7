package logic

import "fmt"

// ProfileClock advances the per-phase tick counter and decides phase transitions.
type ProfileClock struct {
	profile Profile
	state   RunState
}

// NewProfileClock creates a clock in Idle with elapsed=0.
func NewProfileClock(profile Profile) *ProfileClock {
	return &ProfileClock{
		profile: profile,
		state:   RunState{Phase: PhaseIdle},
	}
}

// Tick advances the clock by exactly one tick, applying at most one command.
// It returns the resulting phase and its target temperature.
//
// A returned error wraps ErrInvalidCommand and only describes a dropped
// command; the tick itself has still been applied.
func (c *ProfileClock) Tick(cmd Command) (Phase, float64, error) {
	transitioned, err := c.apply(cmd)

	if !transitioned {
		c.state.Elapsed++
		if d := c.profile.Spec(c.state.Phase).DurationTicks; c.state.Phase != PhaseIdle && c.state.Elapsed >= d {
			c.enter(c.state.Phase.Next())
		}
	}

	return c.state.Phase, c.TargetTemp(c.state.Phase), err
}

// apply handles cmd and reports whether it caused a transition.
func (c *ProfileClock) apply(cmd Command) (bool, error) {
	switch cmd {
	case CommandNone:
		return false, nil
	case CommandStart:
		if c.state.Phase != PhaseIdle {
			return false, fmt.Errorf("start during %s: %w", c.state.Phase, ErrInvalidCommand)
		}
		c.enter(PhasePreheat)
		return true, nil
	case CommandAbort:
		switch c.state.Phase {
		case PhaseIdle:
			return false, fmt.Errorf("abort while idle: %w", ErrInvalidCommand)
		case PhaseCooldown:
			return false, nil
		}
		c.enter(PhaseCooldown)
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q: %w", cmd, ErrInvalidCommand)
	}
}

func (c *ProfileClock) enter(p Phase) {
	c.state = RunState{Phase: p}
}

// TargetTemp returns the configured target for p. Idle uses the ambient target.
func (c *ProfileClock) TargetTemp(p Phase) float64 {
	return c.profile.Spec(p).TargetC
}

// Status returns a snapshot of the clock. It never mutates state.
func (c *ProfileClock) Status() ClockStatus {
	return ClockStatus{
		Phase:    c.state.Phase,
		Elapsed:  c.state.Elapsed,
		Duration: c.profile.Spec(c.state.Phase).DurationTicks,
	}
}

// Profile returns the profile the clock was built with.
func (c *ProfileClock) Profile() Profile {
	return c.profile
}
