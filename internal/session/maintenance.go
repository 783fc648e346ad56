package session

import (
	"log"
	"math/rand"
	"time"

	"github.com/sweeney/geolock/internal/display"
)

// fillerChars is the set drawn from for the deterrent display. Dense
// ASCII so the grid looks busy; this is a visual cue, not a
// cryptographic mechanism.
const fillerChars = "!#$%&*+<=>?@ABCDEFGHJKLMNPQRSTUVWXYZ0123456789"

// maintenance runs the supervised reset sequence. It is reached only
// when the board is still powered after power-off was asserted, which
// the hardware makes possible solely through the auxiliary
// maintenance supply. Returns false if the supply was removed during
// the abort window.
//
// The sequence deliberately ignores position: it exists to reset the
// counter and to open a box whose battery has died, wherever it is.
func (c *Controller) maintenance() bool {
	c.show(msgMaintWarnTop, msgMaintWarnBottom)
	c.deps.Wait(c.cfg.MaintenanceAbortDwell)

	// Abort window: an accidental connection gets pulled here.
	// Past this point the sequence is irreversible for this boot.
	if !c.deps.ExternalPowerPresent() {
		log.Printf("session: maintenance supply removed in abort window")
		return false
	}

	log.Printf("session: maintenance sequence committed")
	c.filler()
	c.deps.Wait(c.cfg.MaintenanceFinalDelay)

	c.resetCounter()
	c.show(msgResetTop, msgResetBottom)
	if err := c.deps.Display.SetBacklight(false); err != nil {
		log.Printf("session: backlight off: %v", err)
	}

	c.unlockHold(c.cfg.MaintenanceUnlockHold)
	return true
}

// filler streams pseudo-random characters across the grid, one per
// period, as an obfuscation cue to an unintended observer.
func (c *Controller) filler() {
	rng := c.deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(c.now().UnixNano()))
	}

	cell := 0
	for elapsed := time.Duration(0); elapsed < c.cfg.FillerDuration; elapsed += c.cfg.FillerCharPeriod {
		row := (cell / display.Columns) % display.Rows
		col := cell % display.Columns
		ch := rune(fillerChars[rng.Intn(len(fillerChars))])
		if err := c.deps.Display.WriteAt(row, col, ch); err != nil {
			log.Printf("session: filler write: %v", err)
		}
		cell++
		c.deps.Wait(c.cfg.FillerCharPeriod)
	}
}

// resetCounter durably zeroes the attempt counter with bounded
// retries, mirroring recordAttempt's persistence policy.
func (c *Controller) resetCounter() {
	for i := 0; i < c.cfg.WriteRetries; i++ {
		err := c.deps.Store.Write(0)
		if err == nil {
			return
		}
		log.Printf("session: reset attempt counter (try %d of %d): %v", i+1, c.cfg.WriteRetries, err)
	}
	log.Printf("session: attempt counter not reset, continuing")
}
