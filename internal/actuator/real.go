//go:build linux

package actuator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutputs drives relay lines through the Linux GPIO character device.
type RealOutputs struct {
	chip     *gpiocdev.Chip
	fanLine  *gpiocdev.Line
	pumpLine *gpiocdev.Line
}

// NewRealOutputs requests the fan and pump lines as outputs, both initially
// off (relays de-energized).
func NewRealOutputs(chipName string, fanPin, pumpPin int) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	fanLine, err := chip.RequestLine(fanPin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request fan pin %d: %w", fanPin, err)
	}

	pumpLine, err := chip.RequestLine(pumpPin, gpiocdev.AsOutput(0))
	if err != nil {
		fanLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request pump pin %d: %w", pumpPin, err)
	}

	return &RealOutputs{
		chip:     chip,
		fanLine:  fanLine,
		pumpLine: pumpLine,
	}, nil
}

// SetFan drives the fan relay line.
func (o *RealOutputs) SetFan(on bool) error {
	if err := o.fanLine.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set fan line: %w", err)
	}
	return nil
}

// SetPump drives the pump relay line.
func (o *RealOutputs) SetPump(on bool) error {
	if err := o.pumpLine.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set pump line: %w", err)
	}
	return nil
}

// Close releases both relays and the lines. Lines are driven low first so a
// process restart never leaves an actuator energized.
func (o *RealOutputs) Close() error {
	var errs []error

	if o.fanLine != nil {
		if err := o.fanLine.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release fan relay: %w", err))
		}
		if err := o.fanLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fan line: %w", err))
		}
	}
	if o.pumpLine != nil {
		if err := o.pumpLine.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release pump relay: %w", err))
		}
		if err := o.pumpLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pump line: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
