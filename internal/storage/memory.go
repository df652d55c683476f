package storage

import (
	"context"
	"slices"
	"sync"
)

// MemorySlot keeps the value in process memory. Nothing survives a restart.
type MemorySlot struct {
	key  string
	mu   sync.RWMutex
	data []byte
	set  bool
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot(key string) *MemorySlot {
	return &MemorySlot{key: key}
}

func (m *MemorySlot) Key() string { return m.key }

func (m *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, ErrSlotEmpty
	}
	return slices.Clone(m.data), nil
}

func (m *MemorySlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = slices.Clone(data)
	m.set = true
	return nil
}

func (m *MemorySlot) Close() error { return nil }
