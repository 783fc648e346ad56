// Package gps acquires position fixes from a satellite-positioning
// receiver attached over a serial line.
// The real implementation reads the receiver's NMEA byte stream from a
// serial port. The fake implementation plays scripted data for tests.
package gps

// Receiver delivers raw bytes from the positioning receiver.
// Integration is read-only: no commands are ever sent to the module.
type Receiver interface {
	// Read fills p with available receiver bytes and returns the
	// count. A return of (0, nil) means no data was available within
	// the receiver's poll window, not end of stream.
	Read(p []byte) (int, error)

	// Close releases the underlying port.
	Close() error
}

// Fix is one position reading assembled from the receiver stream.
// It lives for a single boot session and is never persisted.
type Fix struct {
	Satellites int
	Lat        float64
	Lon        float64
	Valid      bool
}

// Progress is surfaced while a fix is being acquired, for live
// display of search feedback.
type Progress struct {
	Satellites  int
	NearTimeout bool // acquisition is within the final warning window
}
