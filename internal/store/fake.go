package store

// FakeStore is an in-memory test double. It records write traffic and
// can inject failures.
type FakeStore struct {
	// Count is the current stored value.
	Count uint8

	// Writes counts successful Write calls (including via Increment).
	Writes int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// WriteError, if set, will be returned by Write. FailWrites
	// limits how many calls fail before writes succeed again
	// (0 means every call fails while WriteError is set).
	WriteError error
	FailWrites int

	// Failed counts Write calls that returned the injected error.
	Failed int
}

// NewFakeStore creates a FakeStore holding the given count.
func NewFakeStore(count uint8) *FakeStore {
	return &FakeStore{Count: count}
}

// Read returns the stored counter.
func (f *FakeStore) Read() (uint8, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Count, nil
}

// Write stores the counter.
func (f *FakeStore) Write(count uint8) error {
	if f.WriteError != nil {
		if f.FailWrites == 0 || f.Failed < f.FailWrites {
			f.Failed++
			return f.WriteError
		}
	}
	f.Count = count
	f.Writes++
	return nil
}

// Increment is a read-modify-write returning the new value.
func (f *FakeStore) Increment() (uint8, error) {
	count, err := f.Read()
	if err != nil {
		return 0, err
	}
	if count < 255 {
		count++
	}
	if err := f.Write(count); err != nil {
		return 0, err
	}
	return count, nil
}
