package session

import (
	"time"

	"github.com/sweeney/geolock/internal/geo"
)

// Outcome is the final result of one boot session.
type Outcome string

const (
	OutcomeUnlocked          Outcome = "UNLOCKED"
	OutcomeAttemptRecorded   Outcome = "ATTEMPT_RECORDED"
	OutcomeFixTimedOut       Outcome = "FIX_TIMED_OUT"
	OutcomeAttemptsExhausted Outcome = "ATTEMPTS_EXHAUSTED"
	OutcomeMaintenanceReset  Outcome = "MAINTENANCE_RESET"
)

// Config holds the session policy. All timing lives here, not inline
// in the state machine, so tests can run with shortened durations.
type Config struct {
	// Target is the coordinate the box opens at. Fixed for the
	// lifetime of the device.
	Target geo.Coordinate

	// UnlockRadiusMeters is the distance below which the box opens.
	UnlockRadiusMeters float64

	// MaxAttempts is the retry budget. Once the persisted counter
	// exceeds it, unlocking is refused before any fix work.
	MaxAttempts uint8

	// BearingHintAfter withholds the bearing until the counter
	// exceeds it, so early attempts stay a pure distance puzzle.
	BearingHintAfter uint8

	// MinSatellites is the satellite count a fix must reach.
	MinSatellites int

	// FixTimeout is the acquisition budget. FixNearTimeout switches
	// the search feedback to a warning; it never moves the deadline.
	FixTimeout     time.Duration
	FixNearTimeout time.Duration

	// UnlockHold keeps the mechanism energized long enough for
	// manual retrieval; generous against mechanical slack since
	// actuation is open-loop.
	UnlockHold time.Duration

	// Maintenance sequence timing (see maintenance.go).
	MaintenanceAbortDwell time.Duration
	FillerCharPeriod      time.Duration
	FillerDuration        time.Duration
	MaintenanceFinalDelay time.Duration
	MaintenanceUnlockHold time.Duration

	// WriteRetries bounds re-attempts of a failed counter persist
	// before the session gives up and powers off anyway.
	WriteRetries int
}

// DefaultConfig returns the shipped policy.
func DefaultConfig() Config {
	return Config{
		Target:             geo.Coordinate{Lat: 44.409585, Lon: 8.923451},
		UnlockRadiusMeters: 100.0,
		MaxAttempts:        25,
		BearingHintAfter:   14,
		MinSatellites:      4,

		FixTimeout:     120 * time.Second,
		FixNearTimeout: 115 * time.Second,

		UnlockHold: 30 * time.Second,

		MaintenanceAbortDwell: 10 * time.Second,
		FillerCharPeriod:      300 * time.Millisecond,
		FillerDuration:        24 * time.Second,
		MaintenanceFinalDelay: 20 * time.Second,
		MaintenanceUnlockHold: 20 * time.Second,

		WriteRetries: 3,
	}
}
