package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore is an ephemeral Checkpointer backed by a guarded map, for
// tests and single-process deployments that don't need durability across
// restarts.
type MemoryStore struct {
	mu    sync.Mutex
	state map[string][]byte
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, threadID string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[threadID] = append([]byte(nil), state...)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, threadID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[threadID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, threadID)
	return nil
}

var _ Checkpointer = (*MemoryStore)(nil)
