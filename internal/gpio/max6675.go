package gpio

import (
	"math"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// MAX6675 frame layout: D15 dummy sign bit, D14..D3 temperature in 0.25 °C
// steps, D2 open-thermocouple flag, D1 device ID, D0 tri-state.
const (
	max6675OpenBit = 1 << 2
	max6675Step    = 0.25
	max6675MaxC    = 1023.75
	max6675MinC    = 0
)

// DecodeMAX6675 converts a raw 16-bit frame into a sample.
func DecodeMAX6675(raw uint16) logic.SensorSample {
	if raw&max6675OpenBit != 0 {
		return logic.InvalidSample
	}
	// All ones means DO is floating (chip missing or unpowered).
	if raw == 0xFFFF || raw&0x8000 != 0 {
		return logic.InvalidSample
	}
	return CheckSample(float64(raw>>3) * max6675Step)
}

// CheckSample marks physically impossible readings as invalid.
func CheckSample(c float64) logic.SensorSample {
	if math.IsNaN(c) || math.IsInf(c, 0) || c < max6675MinC || c > max6675MaxC {
		return logic.SensorSample{ValueC: c, Valid: false}
	}
	return logic.SensorSample{ValueC: c, Valid: true}
}
