// Package actuator maps sensor and simulation values to relay states and
// drives the physical outputs. The real implementation uses the Linux GPIO
// character device; the fake allows testing without hardware.
package actuator

import "time"

// State is the applied actuator state. It represents physical output truth
// and is mutated only by the Controller.
type State struct {
	FanOn       bool
	PumpOn      bool
	LastChanged time.Time
}

// SafeMode selects what Apply falls back to when inputs are unavailable or
// repeatedly invalid.
type SafeMode string

const (
	// SafeOff de-energizes both relays.
	SafeOff SafeMode = "off"

	// SafeHold keeps the last applied state.
	SafeHold SafeMode = "hold"
)

// Policy is the deterministic threshold policy. The fan follows the measured
// inlet temperature; the pump follows relative humidity. Hysteresis keeps a
// relay from chattering around its threshold.
type Policy struct {
	// FanOnTemp turns the fan on above this inlet temperature (degrees C).
	FanOnTemp float64

	// PumpOnRH turns the pump on above this relative humidity (percent).
	PumpOnRH float64

	// Hysteresis is subtracted from each threshold for the off transition.
	Hysteresis float64

	// Safe selects the fallback behavior.
	Safe SafeMode
}

// Outputs drives the physical relays. Implementations must treat writing an
// already-applied value as valid (the hardware no-ops).
type Outputs interface {
	// SetFan energizes or releases the fan relay.
	SetFan(on bool) error

	// SetPump energizes or releases the pump relay.
	SetPump(on bool) error

	// Close releases the output lines, leaving both relays off.
	Close() error
}
