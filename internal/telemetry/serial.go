package telemetry

import (
	"fmt"
	"io"
	"log"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when no baud rate is given.
const DefaultBaudRate = 115200

// OpenSerial opens the named serial port for writing telemetry.
func OpenSerial(name string, baud int) (io.WriteCloser, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		if ports, lerr := serial.GetPortsList(); lerr == nil && len(ports) > 0 {
			log.Printf("telemetry: available ports: %s", strings.Join(ports, ", "))
		}
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}
