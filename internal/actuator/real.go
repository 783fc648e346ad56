//go:build linux

package actuator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver drives actual hardware through the Linux GPIO character
// device. Both lines are requested as outputs driven low; the
// mechanism and the power latch are active-high.
type RealDriver struct {
	chip     *gpiocdev.Chip
	unlock   *gpiocdev.Line
	powerOff *gpiocdev.Line
}

// NewRealDriver requests the unlock and power-off lines on the given
// chip.
func NewRealDriver(chipName string, pinUnlock, pinPowerOff int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	unlockLine, err := chip.RequestLine(pinUnlock, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request unlock pin %d: %w", pinUnlock, err)
	}

	powerOffLine, err := chip.RequestLine(pinPowerOff, gpiocdev.AsOutput(0))
	if err != nil {
		unlockLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request power-off pin %d: %w", pinPowerOff, err)
	}

	return &RealDriver{
		chip:     chip,
		unlock:   unlockLine,
		powerOff: powerOffLine,
	}, nil
}

// SetUnlock drives the unlock mechanism line.
func (d *RealDriver) SetUnlock(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := d.unlock.SetValue(v); err != nil {
		return fmt.Errorf("set unlock line: %w", err)
	}
	return nil
}

// PowerOff asserts the self-latching power-off signal.
func (d *RealDriver) PowerOff() error {
	if err := d.powerOff.SetValue(1); err != nil {
		return fmt.Errorf("assert power-off line: %w", err)
	}
	return nil
}

// Close releases GPIO resources. The unlock line is driven low first
// so a shutdown never leaves the mechanism energized.
func (d *RealDriver) Close() error {
	var errs []error

	if d.unlock != nil {
		if err := d.unlock.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release unlock line: %w", err))
		}
		if err := d.unlock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close unlock line: %w", err))
		}
	}
	if d.powerOff != nil {
		if err := d.powerOff.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close power-off line: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
