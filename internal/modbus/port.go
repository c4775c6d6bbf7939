package modbus

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port is the serial transport beneath the client. Read must honor the
// timeout set with SetReadTimeout and return n == 0 when it expires.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	SetReadTimeout(d time.Duration) error
	Close() error
}

// OpenPort opens the serial device at the given baud rate (8N1).
func OpenPort(device string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return port, nil
}
