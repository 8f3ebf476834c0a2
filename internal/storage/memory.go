package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps collections in process memory. Used by tests and by
// the offline client when no data directory is configured.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// FailSave, when set, is returned by every Save.
	FailSave error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return saveError(name, m.FailSave)
	}
	doc := make([]byte, len(data))
	copy(doc, data)
	m.docs[name] = doc
	return nil
}
