package logic

import "errors"

// Controller runs ProfileClock and ThermalRegulator once per tick, in that order.
// It is not safe for concurrent use; the control loop is its only caller.
type Controller struct {
	clock     *ProfileClock
	regulator *ThermalRegulator
	status    Status
}

// NewController creates a controller in Idle with the relay off.
func NewController(profile Profile, hysteresis float64) *Controller {
	c := &Controller{
		clock:     NewProfileClock(profile),
		regulator: NewThermalRegulator(hysteresis),
	}
	cs := c.clock.Status()
	c.status = Status{
		Phase:      cs.Phase,
		Duration:   cs.Duration,
		TargetC:    c.clock.TargetTemp(cs.Phase),
		LastSample: InvalidSample,
	}
	return c
}

// Step advances one tick with the command (if any) and the single sample
// captured for this tick, and returns the resulting status.
func (c *Controller) Step(cmd Command, sample SensorSample) Status {
	if !sample.Usable() {
		sample = InvalidSample
	}
	phase, target, cmdErr := c.clock.Tick(cmd)

	var fault error
	if phase.Heating() {
		_, fault = c.regulator.Update(target, sample)
	} else {
		c.regulator.ForceOff()
		if !sample.Valid {
			fault = ErrSensorFault
		}
	}

	cs := c.clock.Status()
	c.status = Status{
		Phase:      cs.Phase,
		Elapsed:    cs.Elapsed,
		Duration:   cs.Duration,
		TargetC:    target,
		LastSample: sample,
		RelayOn:    c.regulator.RelayOn(),
		Fault:      fault,
	}
	if errors.Is(cmdErr, ErrInvalidCommand) {
		c.status.Rejected = cmd
	}
	return c.status
}

// ForceOff turns the heater off outside of a tick (shutdown and fault paths).
// The phase is left unchanged.
func (c *Controller) ForceOff() Status {
	c.regulator.ForceOff()
	c.status.RelayOn = false
	c.status.Rejected = CommandNone
	return c.status
}

// Status returns the status produced by the last Step.
func (c *Controller) Status() Status {
	return c.status
}

// Profile returns the active profile.
func (c *Controller) Profile() Profile {
	return c.clock.Profile()
}
