// Package display drives the write-only character display that gives
// the holder their only feedback. The real implementation is an
// HD44780 module in 4-bit mode over GPIO. The fake records writes for
// tests.
package display

// Grid dimensions of the character display.
const (
	Columns = 16
	Rows    = 2
)

// Display is a fixed character grid addressed by row and column.
type Display interface {
	// WriteLine replaces a full row. Text longer than Columns runes
	// is truncated; shorter text is padded with spaces so stale
	// characters never bleed through.
	WriteLine(row int, text string) error

	// WriteAt places a single character at row/col.
	WriteAt(row, col int, ch rune) error

	// Clear blanks the whole grid.
	Clear() error

	// SetBacklight switches display illumination. Turning it off is
	// the terminal cue of the maintenance-reset path.
	SetBacklight(on bool) error

	// Close releases display resources.
	Close() error
}

// Pad normalizes text to exactly Columns runes for a row write.
func Pad(text string) string {
	r := []rune(text)
	if len(r) > Columns {
		return string(r[:Columns])
	}
	for len(r) < Columns {
		r = append(r, ' ')
	}
	return string(r)
}
