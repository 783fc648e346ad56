//go:build !linux

package actuator

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(chipName string, pinUnlock, pinPowerOff int) (*RealDriver, error) {
	return nil, errors.New("actuator: not supported on this platform (requires Linux)")
}

// SetUnlock is not implemented on non-Linux platforms.
func (d *RealDriver) SetUnlock(on bool) error {
	return errors.New("actuator: not supported")
}

// PowerOff is not implemented on non-Linux platforms.
func (d *RealDriver) PowerOff() error {
	return errors.New("actuator: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
