package gps

// FakeReceiver is a test double that plays scripted byte chunks.
// Each call to Read delivers the next chunk; once the script is
// exhausted, Read returns (0, nil) like a quiet module.
type FakeReceiver struct {
	// Chunks contains scripted receiver data, one chunk per Read call.
	Chunks [][]byte

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	// Reads counts Read calls, including ones after exhaustion.
	// Lets tests verify the pump keeps servicing the receiver
	// during timed waits.
	Reads int

	index int
}

// NewFakeReceiver creates a FakeReceiver with the given chunks.
func NewFakeReceiver(chunks [][]byte) *FakeReceiver {
	return &FakeReceiver{Chunks: chunks}
}

// Read copies the next scripted chunk into p.
func (f *FakeReceiver) Read(p []byte) (int, error) {
	f.Reads++

	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if f.index >= len(f.Chunks) {
		return 0, nil
	}

	n := copy(p, f.Chunks[f.index])
	f.index++
	return n, nil
}

// Close marks the receiver as closed.
func (f *FakeReceiver) Close() error {
	f.Closed = true
	return nil
}
