// Package session runs the controller's single-shot state machine:
// on every power-on it executes once to completion, ending either
// with the lock actuated or with the power-off signal asserted.
// There is no resumable session; persistent state is the attempt
// counter alone.
package session

import (
	"log"
	"math/rand"
	"time"

	"github.com/sweeney/geolock/internal/actuator"
	"github.com/sweeney/geolock/internal/display"
	"github.com/sweeney/geolock/internal/geo"
	"github.com/sweeney/geolock/internal/gps"
	"github.com/sweeney/geolock/internal/store"
	"github.com/sweeney/geolock/internal/telemetry"
)

// Deps holds every peripheral and platform hook the controller
// touches. All are explicit fields, never globals, so the state
// machine tests in isolation.
type Deps struct {
	Store    store.Store
	Actuator actuator.Driver
	Display  display.Display

	// AcquireFix runs the position source. onProgress is invoked
	// with live search feedback.
	AcquireFix func(timeout, nearTimeout time.Duration, minSats int, onProgress func(gps.Progress)) gps.Fix

	// ExternalPowerPresent reports whether the board is still being
	// powered after the power-off signal was asserted. On battery
	// power this is unreachable; returning true means a maintenance
	// supply is connected.
	ExternalPowerPresent func() bool

	// Wait sleeps while keeping the receiver serviced. Every timed
	// delay in the session goes through it.
	Wait func(time.Duration)

	// Now is injectable for tests.
	Now func() time.Time

	// Rand drives the maintenance filler characters. Nil seeds from
	// the clock.
	Rand *rand.Rand

	// Telemetry, when non-nil, receives the session result (bench
	// diagnostics only).
	Telemetry telemetry.Publisher
}

// Controller is the top-level state machine.
type Controller struct {
	cfg  Config
	deps Deps

	last [display.Rows]string
}

// New creates a Controller with the given policy and peripherals.
func New(cfg Config, deps Deps) *Controller {
	return &Controller{cfg: cfg, deps: deps}
}

// Run executes one boot session to completion and returns its
// outcome. Every path ends with the power-off signal asserted; if
// power persists past that, the maintenance sequence runs and the
// outcome becomes OutcomeMaintenanceReset.
func (c *Controller) Run() Outcome {
	var report telemetry.SessionEvent

	count, err := c.deps.Store.Read()
	if err != nil {
		// A counter that cannot be read must not strand the unit
		// powered on. Treat it like a fresh unit and keep going.
		log.Printf("session: read attempt counter: %v", err)
	}
	report.Attempts = count
	log.Printf("session: start, attempts used %d of %d", count, c.cfg.MaxAttempts)

	// Budget check comes before any fix work: with the budget spent
	// there is nothing a position could change, and the 120s search
	// would only drain the battery.
	if count > c.cfg.MaxAttempts {
		c.show(msgExhaustedTop, msgExhaustedBottom)
		return c.finish(OutcomeAttemptsExhausted, report)
	}

	c.show(msgSearchingTop, satsLine(0, c.cfg.MinSatellites))
	fix := c.deps.AcquireFix(c.cfg.FixTimeout, c.cfg.FixNearTimeout, c.cfg.MinSatellites, c.progress)
	report.FixValid = fix.Valid
	report.Satellites = fix.Satellites

	if !fix.Valid {
		// A failed search is not a failed attempt: indoor boots must
		// not consume the budget.
		log.Printf("session: no fix within %v (%d satellites)", c.cfg.FixTimeout, fix.Satellites)
		c.show(msgNoFixTop, msgNoFixBottom)
		return c.finish(OutcomeFixTimedOut, report)
	}

	here := geo.Coordinate{Lat: fix.Lat, Lon: fix.Lon}
	dist := geo.Distance(here, c.cfg.Target)
	bearing := geo.Bearing(here, c.cfg.Target)
	report.DistanceMeters = dist
	report.BearingDeg = bearing
	log.Printf("session: fix %d sats, distance %.1fm", fix.Satellites, dist)

	if dist < c.cfg.UnlockRadiusMeters {
		c.show(msgUnlockedTop, msgUnlockedBottom)
		c.unlockHold(c.cfg.UnlockHold)
		return c.finish(OutcomeUnlocked, report)
	}

	newCount := c.recordAttempt(count)
	report.Attempts = newCount
	c.showAttempt(dist, bearing, newCount)
	return c.finish(OutcomeAttemptRecorded, report)
}

// progress carries live search feedback to the display. Near the
// acquisition deadline the headline switches to a warning so the
// holder can tell "about to fail" from "still searching".
func (c *Controller) progress(p gps.Progress) {
	top := msgSearchingTop
	if p.NearTimeout {
		top = msgWeakTop
	}
	c.show(top, satsLine(p.Satellites, c.cfg.MinSatellites))
}

// recordAttempt increments and durably persists the counter with
// bounded retries. Persisting must complete before power-off: losing
// the write would break the attempt-limit invariant.
func (c *Controller) recordAttempt(count uint8) uint8 {
	for i := 0; i < c.cfg.WriteRetries; i++ {
		newCount, err := c.deps.Store.Increment()
		if err == nil {
			return newCount
		}
		log.Printf("session: persist attempt counter (try %d of %d): %v", i+1, c.cfg.WriteRetries, err)
	}

	// Could not persist. Losing one unit of accounting is accepted;
	// refusing to power off is not.
	log.Printf("session: attempt counter not persisted, continuing to power-off")
	if count < 255 {
		count++
	}
	return count
}

func (c *Controller) showAttempt(dist, bearing float64, count uint8) {
	top := distanceLine(dist)
	if count > c.cfg.BearingHintAfter {
		top = bearingDistanceLine(dist, bearing)
	}

	remaining := int(c.cfg.MaxAttempts) + 1 - int(count)
	if remaining < 0 {
		remaining = 0
	}
	c.show(top, triesLine(remaining))
}

// unlockHold energizes the mechanism for the given hold, servicing
// the receiver throughout, then releases it.
func (c *Controller) unlockHold(hold time.Duration) {
	if err := c.deps.Actuator.SetUnlock(true); err != nil {
		log.Printf("session: energize unlock: %v", err)
		return
	}
	c.deps.Wait(hold)
	if err := c.deps.Actuator.SetUnlock(false); err != nil {
		log.Printf("session: release unlock: %v", err)
	}
}

// finish publishes the result, asserts power-off, and then checks for
// a persisting maintenance supply. On battery power execution ends
// inside PowerOff; reaching the maintenance check at all means the
// power-off command did not take effect.
func (c *Controller) finish(outcome Outcome, report telemetry.SessionEvent) Outcome {
	c.publish(outcome, report)

	if err := c.deps.Actuator.PowerOff(); err != nil {
		log.Printf("session: assert power-off: %v", err)
	}

	if c.deps.ExternalPowerPresent == nil || !c.deps.ExternalPowerPresent() {
		return outcome
	}

	log.Printf("session: power persists after power-off, entering maintenance check")
	if !c.maintenance() {
		return outcome
	}

	report.Attempts = 0
	c.publish(OutcomeMaintenanceReset, report)
	return OutcomeMaintenanceReset
}

func (c *Controller) publish(outcome Outcome, report telemetry.SessionEvent) {
	if c.deps.Telemetry == nil {
		return
	}
	report.Outcome = string(outcome)
	report.Timestamp = c.now()
	if err := c.deps.Telemetry.PublishSession(report); err != nil {
		log.Printf("session: publish telemetry: %v", err)
	}
}

func (c *Controller) now() time.Time {
	if c.deps.Now != nil {
		return c.deps.Now()
	}
	return time.Now()
}

// show writes both rows, skipping the write when nothing changed so
// the progress callback does not hammer the display every poll.
func (c *Controller) show(top, bottom string) {
	if top == c.last[0] && bottom == c.last[1] {
		return
	}
	c.last[0], c.last[1] = top, bottom

	if err := c.deps.Display.WriteLine(0, top); err != nil {
		log.Printf("session: display row 0: %v", err)
	}
	if err := c.deps.Display.WriteLine(1, bottom); err != nil {
		log.Printf("session: display row 1: %v", err)
	}
}
