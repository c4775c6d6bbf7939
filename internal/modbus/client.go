package modbus

import (
	"fmt"
	"sync"
	"time"
)

// Client is a Modbus RTU master bound to one sensor on one bus. Only one
// transaction may be in flight at a time: Poll takes exclusive ownership of
// the bus for the full request/response exchange and reports ErrBusBusy if
// ownership cannot be taken immediately.
type Client struct {
	mu      sync.Mutex
	port    Port
	unit    byte
	start   uint16
	timeout time.Duration
	now     func() time.Time
}

// ClientConfig holds the device-specific parameters of the sensor.
type ClientConfig struct {
	// UnitID is the sensor's bus address.
	UnitID byte

	// StartRegister is the first measurement register (temperature;
	// humidity follows it).
	StartRegister uint16

	// Timeout bounds one full transaction.
	Timeout time.Duration
}

// NewClient creates a client over an already-open port.
func NewClient(port Port, cfg ClientConfig) *Client {
	return &Client{
		port:    port,
		unit:    cfg.UnitID,
		start:   cfg.StartRegister,
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

// Poll runs one read transaction and decodes temperature and humidity.
// On any error the bus is released and no partial Reading is returned.
func (c *Client) Poll() (Reading, error) {
	if !c.mu.TryLock() {
		return Reading{}, ErrBusBusy
	}
	defer c.mu.Unlock()

	request := buildReadRequest(c.unit, c.start)
	if _, err := c.port.Write(request); err != nil {
		return Reading{}, fmt.Errorf("write request: %w", err)
	}

	frame, err := c.readFrame()
	if err != nil {
		return Reading{}, err
	}

	regs, err := parseReadResponse(c.unit, frame)
	if err != nil {
		return Reading{}, err
	}

	return decodeReading(regs, c.now()), nil
}

// readFrame accumulates response bytes until a full frame has arrived or the
// transaction deadline passes. A zero-byte read means the per-read timeout
// expired with the line idle.
func (c *Client) readFrame() ([]byte, error) {
	deadline := c.now().Add(c.timeout)
	frame := make([]byte, 0, responseLen)
	buf := make([]byte, responseLen)

	for len(frame) < responseLen {
		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			break
		}
		if err := c.port.SetReadTimeout(remaining); err != nil {
			return nil, fmt.Errorf("set read timeout: %w", err)
		}

		n, err := c.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if n == 0 {
			// Line idle past the deadline. An exception frame is
			// shorter than a normal response, so a short but
			// complete frame ends up here and is handed to the
			// parser as-is.
			break
		}
		frame = append(frame, buf[:n]...)
	}

	if len(frame) == 0 {
		return nil, ErrTimeout
	}
	return frame, nil
}

// Close releases the serial port.
func (c *Client) Close() error {
	return c.port.Close()
}
