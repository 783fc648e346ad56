// Package actuator drives the lock mechanism and the self-latching
// power-off switch. The real implementation uses the Linux GPIO
// character device. The fake implementation allows testing without
// hardware.
//
// Actuation is open-loop: there is no feedback line from the
// mechanism, so hold timing belongs to the caller, not the driver.
package actuator

// Driver controls the two output lines.
type Driver interface {
	// SetUnlock energizes (true) or releases (false) the unlock
	// mechanism driver.
	SetUnlock(on bool) error

	// PowerOff asserts the self-latching power-off signal. On battery
	// power the device stops executing shortly after; on external
	// maintenance power, execution continues.
	PowerOff() error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinUnlock   = 17 // unlock mechanism driver
	DefaultPinPowerOff = 27 // self-latching power-off
)
