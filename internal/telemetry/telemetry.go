// Package telemetry publishes session results over MQTT for bench
// diagnostics. On the sealed battery-powered unit there is no network
// and the publisher stays nil; on the workshop bench a broker address
// enables it.
package telemetry

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for session result events.
const Topic = "geolock/session/events"

// Publisher publishes session events.
type Publisher interface {
	// PublishSession sends one session result to the broker.
	// Returns error if publishing fails (must not block the
	// power-off path for long).
	PublishSession(event SessionEvent) error

	// Close disconnects from the broker.
	Close() error
}

// SessionEvent is the result of one boot session.
type SessionEvent struct {
	Timestamp      time.Time
	Outcome        string
	Attempts       uint8
	FixValid       bool
	Satellites     int
	DistanceMeters float64
	BearingDeg     float64
}

// Payload is the MQTT message envelope.
type Payload struct {
	Session SessionPayload `json:"session"`
}

// SessionPayload contains the session result details.
type SessionPayload struct {
	Timestamp      string  `json:"timestamp"`
	Outcome        string  `json:"outcome"`
	Attempts       uint8   `json:"attempts"`
	FixValid       bool    `json:"fix_valid"`
	Satellites     int     `json:"satellites"`
	DistanceMeters float64 `json:"distance_m,omitempty"`
	BearingDeg     float64 `json:"bearing_deg,omitempty"`
}

// FormatPayload creates the JSON payload for a session event.
func FormatPayload(event SessionEvent) ([]byte, error) {
	payload := Payload{
		Session: SessionPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Outcome:        event.Outcome,
			Attempts:       event.Attempts,
			FixValid:       event.FixValid,
			Satellites:     event.Satellites,
			DistanceMeters: event.DistanceMeters,
			BearingDeg:     event.BearingDeg,
		},
	}
	return json.Marshal(payload)
}
