package actuator

// FakeDriver records actuation for test assertions.
type FakeDriver struct {
	// UnlockOn is the current state of the unlock line.
	UnlockOn bool

	// UnlockPulses counts off-to-on transitions of the unlock line.
	UnlockPulses int

	// PowerOffAsserted tracks whether PowerOff was called.
	PowerOffAsserted bool

	// Ops records the sequence of operations ("unlock-on",
	// "unlock-off", "power-off") for ordering assertions.
	Ops []string

	// SetUnlockError, if set, will be returned by SetUnlock.
	SetUnlockError error

	// PowerOffError, if set, will be returned by PowerOff.
	PowerOffError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// SetUnlock records the unlock line state.
func (f *FakeDriver) SetUnlock(on bool) error {
	if f.SetUnlockError != nil {
		return f.SetUnlockError
	}

	if on && !f.UnlockOn {
		f.UnlockPulses++
	}
	f.UnlockOn = on

	if on {
		f.Ops = append(f.Ops, "unlock-on")
	} else {
		f.Ops = append(f.Ops, "unlock-off")
	}
	return nil
}

// PowerOff records the power-off assertion.
func (f *FakeDriver) PowerOff() error {
	if f.PowerOffError != nil {
		return f.PowerOffError
	}
	f.PowerOffAsserted = true
	f.Ops = append(f.Ops, "power-off")
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}
