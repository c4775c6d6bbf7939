package actuator

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/airloop/internal/modbus"
)

// Controller owns the actuator outputs. It computes the target state from
// the most recent valid inputs and writes only the relays whose desired
// state differs from what was last applied. It never fails a cycle: write
// errors are logged and the logical state is left unchanged so the write is
// reattempted next cycle.
type Controller struct {
	outputs Outputs
	policy  Policy
	log     *logrus.Logger

	applied State
	primed  bool
}

// NewController creates a controller. Both relays are assumed off at start;
// the first Apply establishes the real state.
func NewController(outputs Outputs, policy Policy, log *logrus.Logger) *Controller {
	return &Controller{
		outputs: outputs,
		policy:  policy,
		log:     log,
	}
}

// Apply computes the target state for the given reading and drives the
// relays. The reading must be the most recent valid one; staleness policy is
// the caller's concern.
func (c *Controller) Apply(reading modbus.Reading, now time.Time) State {
	target := c.target(reading)
	return c.drive(target, now)
}

// ApplySafe drives the configured safe fallback state.
func (c *Controller) ApplySafe(now time.Time) State {
	if c.policy.Safe == SafeHold && c.primed {
		return c.applied
	}
	return c.drive(State{}, now)
}

// State returns the currently applied state.
func (c *Controller) State() State {
	return c.applied
}

// target evaluates the threshold policy against the current applied state
// (for hysteresis).
func (c *Controller) target(reading modbus.Reading) State {
	target := State{FanOn: c.applied.FanOn, PumpOn: c.applied.PumpOn}

	switch {
	case reading.Temperature > c.policy.FanOnTemp:
		target.FanOn = true
	case reading.Temperature < c.policy.FanOnTemp-c.policy.Hysteresis:
		target.FanOn = false
	}

	switch {
	case reading.Humidity > c.policy.PumpOnRH:
		target.PumpOn = true
	case reading.Humidity < c.policy.PumpOnRH-c.policy.Hysteresis:
		target.PumpOn = false
	}

	return target
}

// drive writes the relays that differ from the applied state. Identical
// inputs on consecutive calls issue no hardware writes.
func (c *Controller) drive(target State, now time.Time) State {
	changed := false

	if !c.primed || target.FanOn != c.applied.FanOn {
		if err := c.outputs.SetFan(target.FanOn); err != nil {
			c.log.WithError(err).Error("actuator: fan write failed")
			target.FanOn = c.applied.FanOn
		} else if c.primed {
			changed = true
		}
	}
	if !c.primed || target.PumpOn != c.applied.PumpOn {
		if err := c.outputs.SetPump(target.PumpOn); err != nil {
			c.log.WithError(err).Error("actuator: pump write failed")
			target.PumpOn = c.applied.PumpOn
		} else if c.primed {
			changed = true
		}
	}

	if changed || !c.primed {
		target.LastChanged = now
	} else {
		target.LastChanged = c.applied.LastChanged
	}

	c.applied = target
	c.primed = true
	return c.applied
}
