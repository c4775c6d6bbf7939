package modbus

import (
	"time"
)

// FakePort is a scripted serial port for tests. Each Write consumes the next
// scripted response, which subsequent Reads then drain.
type FakePort struct {
	// Responses contains the raw frames to return, one per transaction.
	Responses [][]byte

	// Requests records every frame written to the port.
	Requests [][]byte

	// WriteError, if set, is returned by Write.
	WriteError error

	// ReadError, if set, is returned by Read.
	ReadError error

	// ReadStarted, if non-nil, is closed when the first Read begins.
	ReadStarted chan struct{}

	// ReadGate, if non-nil, blocks Read until the channel is closed.
	ReadGate chan struct{}

	// Closed tracks whether Close was called.
	Closed bool

	pending     []byte
	transaction int
	readBegun   bool
}

// NewFakePort creates a FakePort that answers each request with the next
// frame in responses.
func NewFakePort(responses ...[]byte) *FakePort {
	return &FakePort{Responses: responses}
}

// Write records the request and queues the next scripted response.
func (f *FakePort) Write(p []byte) (int, error) {
	if f.WriteError != nil {
		return 0, f.WriteError
	}
	f.Requests = append(f.Requests, append([]byte(nil), p...))
	if f.transaction < len(f.Responses) {
		f.pending = append([]byte(nil), f.Responses[f.transaction]...)
		f.transaction++
	} else {
		f.pending = nil
	}
	return len(p), nil
}

// Read drains the queued response. An exhausted queue behaves like an idle
// line: it returns n == 0, which the client treats as a read timeout.
func (f *FakePort) Read(p []byte) (int, error) {
	if !f.readBegun {
		f.readBegun = true
		if f.ReadStarted != nil {
			close(f.ReadStarted)
		}
	}
	if f.ReadGate != nil {
		<-f.ReadGate
	}
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.pending) == 0 {
		return 0, nil
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

// SetReadTimeout is a no-op for the fake.
func (f *FakePort) SetReadTimeout(time.Duration) error {
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// FakeReader is a scripted sensor for loop-level tests, bypassing the frame
// codec entirely.
type FakeReader struct {
	// Readings are returned in order; the last one repeats once exhausted.
	Readings []Reading

	// Errs mirrors Readings: a non-nil entry makes that Poll fail.
	Errs []error

	// Polls counts Poll calls.
	Polls int

	// Closed tracks whether Close was called.
	Closed bool

	index int
}

// Poll returns the next scripted reading or error.
func (f *FakeReader) Poll() (Reading, error) {
	f.Polls++
	i := f.index
	if f.index < len(f.Readings)-1 || (len(f.Errs) > 0 && f.index < len(f.Errs)-1) {
		f.index++
	}
	if i < len(f.Errs) && f.Errs[i] != nil {
		return Reading{}, f.Errs[i]
	}
	if i >= len(f.Readings) {
		return Reading{}, ErrTimeout
	}
	return f.Readings[i], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
