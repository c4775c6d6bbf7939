package actuator

// FakeOutputs records relay writes for test assertions.
type FakeOutputs struct {
	// Fan and Pump hold the last written values.
	Fan  bool
	Pump bool

	// FanWrites and PumpWrites count hardware writes, including any
	// redundant ones the controller should have suppressed.
	FanWrites  int
	PumpWrites int

	// FanError and PumpError, if set, are returned by the corresponding
	// setter.
	FanError  error
	PumpError error

	// Closed tracks whether Close was called.
	Closed bool
}

// NewFakeOutputs creates a FakeOutputs with both relays off.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetFan records the fan write.
func (f *FakeOutputs) SetFan(on bool) error {
	if f.FanError != nil {
		return f.FanError
	}
	f.Fan = on
	f.FanWrites++
	return nil
}

// SetPump records the pump write.
func (f *FakeOutputs) SetPump(on bool) error {
	if f.PumpError != nil {
		return f.PumpError
	}
	f.Pump = on
	f.PumpWrites++
	return nil
}

// Close marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.Closed = true
	return nil
}
