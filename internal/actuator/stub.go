//go:build !linux

package actuator

import "errors"

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(string, int, int) (*RealOutputs, error) {
	return nil, errors.New("actuator: not supported on this platform (requires Linux)")
}

// SetFan is not implemented on non-Linux platforms.
func (o *RealOutputs) SetFan(bool) error {
	return errors.New("actuator: not supported")
}

// SetPump is not implemented on non-Linux platforms.
func (o *RealOutputs) SetPump(bool) error {
	return errors.New("actuator: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutputs) Close() error {
	return nil
}
