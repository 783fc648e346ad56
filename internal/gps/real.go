package gps

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// RealReceiver reads the positioning module's NMEA stream from a
// serial port.
type RealReceiver struct {
	port serial.Port
}

// readTimeout bounds a single port read so the pump loop never blocks
// past its poll cadence when the module goes quiet.
const readTimeout = 50 * time.Millisecond

// NewRealReceiver opens the serial port at the given baud rate.
// Typical wiring is the module's TX pin only; the port is never
// written to.
func NewRealReceiver(portName string, baud int) (*RealReceiver, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &RealReceiver{port: port}, nil
}

// Read fills p with available receiver bytes. Returns (0, nil) when
// the module produced nothing within the read timeout.
func (r *RealReceiver) Read(p []byte) (int, error) {
	n, err := r.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("read receiver: %w", err)
	}
	return n, nil
}

// Close releases the serial port.
func (r *RealReceiver) Close() error {
	return r.port.Close()
}
