//go:build !linux

package display

import "errors"

// HD44780 is not available on non-Linux platforms.
type HD44780 struct{}

// Pins maps display lines to BCM pin numbers.
type Pins struct {
	RS        int
	EN        int
	D4        int
	D5        int
	D6        int
	D7        int
	Backlight int
}

// DefaultPins returns the pin mapping of the controller board.
func DefaultPins() Pins {
	return Pins{RS: 25, EN: 24, D4: 23, D5: 22, D6: 6, D7: 5, Backlight: 12}
}

// NewHD44780 returns an error on non-Linux platforms.
func NewHD44780(chipName string, pins Pins) (*HD44780, error) {
	return nil, errors.New("display: not supported on this platform (requires Linux)")
}

// WriteLine is not implemented on non-Linux platforms.
func (d *HD44780) WriteLine(row int, text string) error {
	return errors.New("display: not supported")
}

// WriteAt is not implemented on non-Linux platforms.
func (d *HD44780) WriteAt(row, col int, ch rune) error {
	return errors.New("display: not supported")
}

// Clear is not implemented on non-Linux platforms.
func (d *HD44780) Clear() error {
	return errors.New("display: not supported")
}

// SetBacklight is not implemented on non-Linux platforms.
func (d *HD44780) SetBacklight(on bool) error {
	return errors.New("display: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *HD44780) Close() error {
	return nil
}
