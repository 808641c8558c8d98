package siteconfig

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps the document in memory. It is used by tests and by
// deployments that do not need persistence across restarts.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   []byte
	writes int

	// ReadErr and WriteErr, when set, are returned instead of touching the data.
	ReadErr  error
	WriteErr error
}

// NewMemoryBackend returns a backend holding data. A nil data means nothing
// has been stored yet.
func NewMemoryBackend(data []byte) *MemoryBackend {
	return &MemoryBackend{data: slices.Clone(data)}
}

// Read implements Backend.
func (m *MemoryBackend) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.data == nil {
		return nil, ErrNoDocument
	}
	return slices.Clone(m.data), nil
}

// Write implements Backend.
func (m *MemoryBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.data = slices.Clone(data)
	m.writes++
	return nil
}

// Name implements Backend.
func (m *MemoryBackend) Name() string { return "memory" }

// Bytes returns a copy of the stored bytes.
func (m *MemoryBackend) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data)
}

// Writes returns how many successful writes have happened.
func (m *MemoryBackend) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
