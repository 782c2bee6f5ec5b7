package logic

// DefaultHysteresis is the half-width of the band around the target, in °C.
const DefaultHysteresis = 0.5

// ThermalRegulator switches the heater relay using a symmetric hysteresis band.
type ThermalRegulator struct {
	halfWidth float64
	heater    HeaterState
}

// NewThermalRegulator creates a regulator with the relay off.
// A non-positive half-width falls back to DefaultHysteresis.
func NewThermalRegulator(halfWidth float64) *ThermalRegulator {
	if halfWidth <= 0 {
		halfWidth = DefaultHysteresis
	}
	return &ThermalRegulator{halfWidth: halfWidth}
}

// Update decides the relay state from the target and this tick's sample.
// An invalid sample turns the relay off and returns ErrSensorFault.
func (r *ThermalRegulator) Update(targetC float64, sample SensorSample) (bool, error) {
	// NaN fails every comparison below and -Inf passes the undershoot one.
	if !sample.Usable() {
		r.heater.RelayOn = false
		return false, ErrSensorFault
	}

	switch {
	case sample.ValueC > targetC+r.halfWidth && r.heater.RelayOn:
		r.heater.RelayOn = false
	case sample.ValueC < targetC-r.halfWidth && !r.heater.RelayOn:
		r.heater.RelayOn = true
	}
	return r.heater.RelayOn, nil
}

// ForceOff unconditionally turns the relay off.
func (r *ThermalRegulator) ForceOff() {
	r.heater.RelayOn = false
}

// RelayOn returns the current logical relay state.
func (r *ThermalRegulator) RelayOn() bool {
	return r.heater.RelayOn
}

// Bounds returns the lower and upper band edges for targetC.
func (r *ThermalRegulator) Bounds(targetC float64) (lower, upper float64) {
	return targetC - r.halfWidth, targetC + r.halfWidth
}
