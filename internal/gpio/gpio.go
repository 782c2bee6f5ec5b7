// Package gpio provides the oven's hardware collaborators with hardware abstraction:
// the heater relay output, the MAX6675 thermocouple amplifier and the
// start/abort push buttons.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/reflow-oven/internal/logic"

// Relay drives the heater's solid-state relay.
type Relay interface {
	// Set energizes (true) or releases (false) the relay.
	Set(on bool) error

	// Close drives the relay off and releases GPIO resources.
	Close() error
}

// Thermocouple reads the oven temperature.
type Thermocouple interface {
	// Read performs one conversion read. A reading that cannot be trusted is
	// returned as a sample with Valid=false; err is only set when the bus
	// itself failed.
	Read() (logic.SensorSample, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins holds BCM line offsets.
type Pins struct {
	Relay int
	CLK   int
	CS    int
	DO    int
	Start int // 0 disables the button
	Abort int // 0 disables the button
}

// Default pin assignment (BCM numbering). The thermocouple uses the SPI0
// header pins, bit-banged.
const (
	DefaultPinRelay = 17
	DefaultPinCLK   = 11
	DefaultPinCS    = 8
	DefaultPinDO    = 9
	DefaultPinStart = 5
	DefaultPinAbort = 6
)

// DefaultPins returns the default pin assignment.
func DefaultPins() Pins {
	return Pins{
		Relay: DefaultPinRelay,
		CLK:   DefaultPinCLK,
		CS:    DefaultPinCS,
		DO:    DefaultPinDO,
		Start: DefaultPinStart,
		Abort: DefaultPinAbort,
	}
}
