package serial

import (
	"errors"
	"sync"
)

// FakePort is a test double that returns scripted chunks and records writes.
// It is safe for concurrent use.
type FakePort struct {
	mu sync.Mutex

	// Chunks contains scripted reads. Each call to Read consumes the next chunk.
	// When exhausted, Read returns ErrReadTimeout.
	Chunks [][]byte

	// ReadError, if set, will be returned by Read.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Written contains every Write payload in call order.
	Written [][]byte

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePort creates a FakePort that yields the given lines, each terminated by "\n".
func NewFakePort(lines ...string) *FakePort {
	f := &FakePort{}
	for _, l := range lines {
		f.Chunks = append(f.Chunks, []byte(l+"\n"))
	}
	return f
}

// Feed appends raw chunks to be read.
func (f *FakePort) Feed(chunks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.Chunks = append(f.Chunks, []byte(c))
	}
}

// Read returns the next scripted chunk.
func (f *FakePort) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Closed {
		return 0, errors.New("fake port closed")
	}
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Chunks) == 0 {
		return 0, ErrReadTimeout
	}

	n := copy(b, f.Chunks[0])
	if n < len(f.Chunks[0]) {
		f.Chunks[0] = f.Chunks[0][n:]
	} else {
		f.Chunks = f.Chunks[1:]
	}
	return n, nil
}

// Write records the payload.
func (f *FakePort) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return 0, f.WriteError
	}
	f.Written = append(f.Written, append([]byte(nil), b...))
	return len(b), nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// WrittenStrings returns the recorded writes as strings.
func (f *FakePort) WrittenStrings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Written))
	for i, w := range f.Written {
		out[i] = string(w)
	}
	return out
}

// FakeOpener returns an Opener that yields port, or err when err is non-nil.
func FakeOpener(port Port, err error) Opener {
	return func(Config) (Port, error) {
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}
