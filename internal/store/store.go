// Package store persists the unlock attempt counter across power
// cycles. The real implementation keeps a single byte at a fixed
// offset in a state file and syncs every write; the fake keeps it in
// memory for tests.
package store

// Store reads and durably writes the attempt counter.
type Store interface {
	// Read returns the persisted counter. A store that has never been
	// written reads as 0.
	Read() (uint8, error)

	// Write persists the counter. It must not return until the value
	// would survive immediate power loss.
	Write(count uint8) error

	// Increment is a read-modify-write returning the new value.
	// The value saturates at 255, the width of the storage field.
	Increment() (uint8, error)
}
