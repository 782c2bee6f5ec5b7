//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/reflow-oven/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(pin int) (*RealRelay, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (r *RealRelay) Set(on bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealRelay) Close() error {
	return nil
}

// RealThermocouple is not available on non-Linux platforms.
type RealThermocouple struct{}

// NewRealThermocouple returns an error on non-Linux platforms.
func NewRealThermocouple(pinCLK, pinCS, pinDO int) (*RealThermocouple, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (t *RealThermocouple) Read() (logic.SensorSample, error) {
	return logic.InvalidSample, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (t *RealThermocouple) Close() error {
	return nil
}

// RealButtons is not available on non-Linux platforms.
type RealButtons struct{}

// NewRealButtons returns an error on non-Linux platforms.
func NewRealButtons(pinStart, pinAbort int, onPress func(logic.Command)) (*RealButtons, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealButtons) Close() error {
	return nil
}
