// Package modbus implements a minimal Modbus RTU master for a single
// temperature/humidity sensor on a half-duplex serial bus.
// The frame codec is pure (no I/O) so it can be tested against fixed bytes;
// the real port uses the serial character device, the fake allows testing
// without hardware.
package modbus

import (
	"errors"
	"time"
)

// Sensor errors. Callers match with errors.Is.
var (
	// ErrTimeout means no (or an incomplete) response arrived within the
	// transaction timeout.
	ErrTimeout = errors.New("modbus: response timeout")

	// ErrMalformed means the response failed an integrity check: bad CRC,
	// wrong address, wrong function code, or wrong length.
	ErrMalformed = errors.New("modbus: malformed response")

	// ErrBusBusy means a previous transaction still owns the bus.
	ErrBusBusy = errors.New("modbus: bus busy")
)

// Reading is one decoded sensor measurement. A Reading is only produced
// whole: on any transaction error the caller gets a zero Reading and an
// error, never a partial decode.
type Reading struct {
	Temperature float64 // degrees C
	Humidity    float64 // percent RH
	Timestamp   time.Time
}

// Reader polls the sensor. Implemented by *Client for real hardware and by
// fakes in tests.
type Reader interface {
	// Poll runs one request/response transaction and decodes the result.
	Poll() (Reading, error)

	// Close releases the underlying port.
	Close() error
}
