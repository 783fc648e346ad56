package session

import "fmt"

// Display messages. The grid is 16 characters wide; templates are
// sized to fit after interpolation.
const (
	msgExhaustedTop    = "Out of attempts"
	msgExhaustedBottom = "Box stays shut"

	msgSearchingTop = "Looking for sky"
	msgWeakTop      = "Signal is weak"

	msgNoFixTop    = "No sky in view"
	msgNoFixBottom = "Take me outside"

	msgUnlockedTop    = "You found it!"
	msgUnlockedBottom = "Open the lid"

	msgMaintWarnTop    = "MAINTENANCE MODE"
	msgMaintWarnBottom = "Disconnect now!"

	msgResetTop    = "Counter cleared"
	msgResetBottom = "Unlocking..."
)

func satsLine(sats, min int) string {
	return fmt.Sprintf("Sats: %d of %d", sats, min)
}

func distanceLine(meters float64) string {
	return fmt.Sprintf("Dist: %s", formatDistance(meters))
}

// bearingDistanceLine packs distance and bearing into one row, e.g.
// "482m brg 271". Worst case ("20015km brg 359") is 15 runes, inside
// the 16-column grid.
func bearingDistanceLine(meters, bearing float64) string {
	return fmt.Sprintf("%s brg %.0f", formatDistance(meters), bearing)
}

func triesLine(remaining int) string {
	return fmt.Sprintf("Tries left: %d", remaining)
}

func formatDistance(meters float64) string {
	switch {
	case meters < 1000:
		return fmt.Sprintf("%.0fm", meters)
	case meters < 100000:
		return fmt.Sprintf("%.1fkm", meters/1000)
	default:
		return fmt.Sprintf("%.0fkm", meters/1000)
	}
}
