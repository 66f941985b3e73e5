package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend keeps serialized sessions in process memory.
// It is the fallback when no Redis is configured; expired entries are dropped
// lazily on read and by Sweep.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry // session ID -> blob
	now     func() time.Time
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// LoadSession returns the stored blob, or nil when absent or expired.
func (m *MemoryBackend) LoadSession(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return nil, nil
	}

	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// SaveSession stores a copy of data. A ttl of zero never expires.
func (m *MemoryBackend) SaveSession(_ context.Context, id string, data []byte, ttl time.Duration) error {
	entry := memoryEntry{data: make([]byte, len(data))}
	copy(entry.data, data)
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[id] = entry
	return nil
}

// DeleteSession removes a session.
func (m *MemoryBackend) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}

// Count returns the number of stored sessions, expired ones included.
func (m *MemoryBackend) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryBackend) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }
