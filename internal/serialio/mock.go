package serialio

import (
	"bytes"
	"errors"
	"sync"
)

// MockPort is an in-memory Port for tests. Reads return whatever has been
// fed and never block; writes and flushes are recorded.
type MockPort struct {
	mu sync.Mutex

	// ReadBuffer holds bytes returned by Read.
	ReadBuffer bytes.Buffer
	// WriteBuffer captures everything written.
	WriteBuffer bytes.Buffer
	// Writes records each Write call's payload.
	Writes []string
	// Flushes counts Flush calls.
	Flushes int

	// ReadError, WriteError and FlushError are returned once by the next call.
	ReadError  error
	WriteError error
	FlushError error

	Closed bool
}

// NewMockPort returns an empty MockPort.
func NewMockPort() *MockPort { return &MockPort{} }

// Feed queues data to be returned by later reads.
func (m *MockPort) Feed(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadBuffer.WriteString(data)
}

// FeedBytes queues raw bytes to be returned by later reads.
func (m *MockPort) FeedBytes(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadBuffer.Write(data)
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return 0, errors.New("serial port closed")
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, err
	}
	if m.ReadBuffer.Len() == 0 {
		return 0, nil
	}
	return m.ReadBuffer.Read(p)
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return 0, errors.New("serial port closed")
	}
	if m.WriteError != nil {
		err := m.WriteError
		m.WriteError = nil
		return 0, err
	}
	m.Writes = append(m.Writes, string(p))
	return m.WriteBuffer.Write(p)
}

func (m *MockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	if m.FlushError != nil {
		err := m.FlushError
		m.FlushError = nil
		return err
	}
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Written returns the payloads of every Write call so far.
func (m *MockPort) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Writes...)
}

// FlushCount returns the number of Flush calls so far.
func (m *MockPort) FlushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Flushes
}
