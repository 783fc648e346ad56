package display

import "strings"

// LineWrite records one WriteLine call.
type LineWrite struct {
	Row  int
	Text string // as written, before padding
}

// FakeDisplay records everything presented, for test assertions.
type FakeDisplay struct {
	// Lines is the current grid content, padded to Columns.
	Lines [Rows]string

	// Writes records every WriteLine call in order.
	Writes []LineWrite

	// CharWrites counts WriteAt calls.
	CharWrites int

	// Backlight is the current illumination state.
	Backlight bool

	// BacklightChanges records every SetBacklight call in order.
	BacklightChanges []bool

	// Cleared counts Clear calls.
	Cleared int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDisplay creates a FakeDisplay with a blank, lit grid.
func NewFakeDisplay() *FakeDisplay {
	f := &FakeDisplay{Backlight: true}
	for i := range f.Lines {
		f.Lines[i] = Pad("")
	}
	return f
}

// WriteLine replaces a row.
func (f *FakeDisplay) WriteLine(row int, text string) error {
	f.Writes = append(f.Writes, LineWrite{Row: row, Text: text})
	if row >= 0 && row < Rows {
		f.Lines[row] = Pad(text)
	}
	return nil
}

// WriteAt places a single character.
func (f *FakeDisplay) WriteAt(row, col int, ch rune) error {
	f.CharWrites++
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return nil
	}
	r := []rune(f.Lines[row])
	r[col] = ch
	f.Lines[row] = string(r)
	return nil
}

// Clear blanks the grid.
func (f *FakeDisplay) Clear() error {
	f.Cleared++
	for i := range f.Lines {
		f.Lines[i] = Pad("")
	}
	return nil
}

// SetBacklight records illumination changes.
func (f *FakeDisplay) SetBacklight(on bool) error {
	f.Backlight = on
	f.BacklightChanges = append(f.BacklightChanges, on)
	return nil
}

// Close marks the display as closed.
func (f *FakeDisplay) Close() error {
	f.Closed = true
	return nil
}

// Contains reports whether any recorded row write contains substr.
// Convenient for asserting on message content without binding tests
// to exact layout.
func (f *FakeDisplay) Contains(substr string) bool {
	for _, w := range f.Writes {
		if strings.Contains(w.Text, substr) {
			return true
		}
	}
	return false
}
