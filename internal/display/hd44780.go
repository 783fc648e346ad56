//go:build linux

package display

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Pins maps HD44780 control and data lines to BCM pin numbers.
// The module runs in 4-bit mode; D0-D3 stay unconnected. R/W is
// strapped to ground, so the display is write-only by wiring.
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

// HD44780 drives a 16x2 character module over the Linux GPIO
// character device.
type HD44780 struct {
	chip      *gpiocdev.Chip
	rs        *gpiocdev.Line
	en        *gpiocdev.Line
	data      [4]*gpiocdev.Line // D4..D7
	backlight *gpiocdev.Line
}

// HD44780 timing. The controller needs ~37us per instruction and
// 1.52ms for clear; the enable pulse must be >450ns.
const (
	pulseDelay    = time.Microsecond
	commandDelay  = 50 * time.Microsecond
	clearDelay    = 2 * time.Millisecond
	powerOnDelay  = 50 * time.Millisecond
	initStepDelay = 5 * time.Millisecond
)

// NewHD44780 requests all display lines and runs the 4-bit
// initialization sequence.
func NewHD44780(chipName string, pins Pins) (*HD44780, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &HD44780{chip: chip}
	request := func(dst **gpiocdev.Line, pin int, name string) error {
		if err != nil {
			return err
		}
		line, reqErr := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if reqErr != nil {
			err = fmt.Errorf("request %s pin %d: %w", name, pin, reqErr)
			return err
		}
		*dst = line
		return nil
	}

	request(&d.rs, pins.RS, "RS")
	request(&d.en, pins.EN, "EN")
	request(&d.data[0], pins.D4, "D4")
	request(&d.data[1], pins.D5, "D5")
	request(&d.data[2], pins.D6, "D6")
	request(&d.data[3], pins.D7, "D7")
	request(&d.backlight, pins.Backlight, "backlight")
	if err != nil {
		d.Close()
		return nil, err
	}

	if err := d.initSequence(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *HD44780) initSequence() error {
	time.Sleep(powerOnDelay)

	// Magic reset dance into 4-bit mode per the datasheet.
	for _, nib := range []byte{0x3, 0x3, 0x3, 0x2} {
		if err := d.writeNibble(nib, false); err != nil {
			return err
		}
		time.Sleep(initStepDelay)
	}

	cmds := []byte{
		0x28, // function set: 4-bit, 2 lines, 5x8 font
		0x0C, // display on, cursor off, blink off
		0x06, // entry mode: increment, no shift
		0x01, // clear
	}
	for _, c := range cmds {
		if err := d.command(c); err != nil {
			return err
		}
	}
	time.Sleep(clearDelay)
	return nil
}

// WriteLine replaces a full row.
func (d *HD44780) WriteLine(row int, text string) error {
	if err := d.setCursor(row, 0); err != nil {
		return err
	}
	for _, ch := range Pad(text) {
		if err := d.writeChar(ch); err != nil {
			return err
		}
	}
	return nil
}

// WriteAt places a single character.
func (d *HD44780) WriteAt(row, col int, ch rune) error {
	if err := d.setCursor(row, col); err != nil {
		return err
	}
	return d.writeChar(ch)
}

// Clear blanks the grid.
func (d *HD44780) Clear() error {
	if err := d.command(0x01); err != nil {
		return err
	}
	time.Sleep(clearDelay)
	return nil
}

// SetBacklight switches display illumination.
func (d *HD44780) SetBacklight(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := d.backlight.SetValue(v); err != nil {
		return fmt.Errorf("set backlight: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
func (d *HD44780) Close() error {
	lines := []*gpiocdev.Line{d.rs, d.en, d.data[0], d.data[1], d.data[2], d.data[3], d.backlight}
	var errs []error
	for _, l := range lines {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (d *HD44780) setCursor(row, col int) error {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return fmt.Errorf("cursor out of range: row %d col %d", row, col)
	}
	addr := byte(col)
	if row == 1 {
		addr += 0x40
	}
	return d.command(0x80 | addr)
}

func (d *HD44780) command(b byte) error {
	return d.writeByte(b, false)
}

func (d *HD44780) writeChar(ch rune) error {
	// The HD44780 character ROM is ASCII in the low range. Anything
	// outside is shown as a block so layout stays fixed-width.
	b := byte(0xFF)
	if ch >= 0x20 && ch < 0x7F {
		b = byte(ch)
	}
	return d.writeByte(b, true)
}

func (d *HD44780) writeByte(b byte, isData bool) error {
	if err := d.writeNibble(b>>4, isData); err != nil {
		return err
	}
	if err := d.writeNibble(b&0x0F, isData); err != nil {
		return err
	}
	time.Sleep(commandDelay)
	return nil
}

func (d *HD44780) writeNibble(nib byte, isData bool) error {
	rs := 0
	if isData {
		rs = 1
	}
	if err := d.rs.SetValue(rs); err != nil {
		return fmt.Errorf("set RS: %w", err)
	}

	for i := 0; i < 4; i++ {
		v := int((nib >> i) & 1)
		if err := d.data[i].SetValue(v); err != nil {
			return fmt.Errorf("set D%d: %w", i+4, err)
		}
	}

	// Latch on the enable pulse.
	if err := d.en.SetValue(1); err != nil {
		return fmt.Errorf("set EN: %w", err)
	}
	time.Sleep(pulseDelay)
	if err := d.en.SetValue(0); err != nil {
		return fmt.Errorf("clear EN: %w", err)
	}
	time.Sleep(pulseDelay)
	return nil
}
