package storage

import "sync"

// MemoryStore 进程内存储，用于测试和 memory 后端
// MemoryStore keeps slots in process memory; used by tests and the "memory" backend
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

func (m *MemoryStore) ReadSlots(keys ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.slots[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) WriteSlots(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.slots[k] = v
	}
	return nil
}

func (m *MemoryStore) DeleteSlots(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.slots, k)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
