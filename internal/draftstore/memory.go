package draftstore

import (
	"encoding/json"
	"fmt"
	"sync"
)

type MemoryStore struct { // implements Store
	mu     sync.RWMutex
	drafts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string][]byte),
	}
}

func (m *MemoryStore) Load(namespace string, into any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.drafts[namespace]
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(body, into); err != nil {
		return false, fmt.Errorf("error decoding draft %q: %w", namespace, err)
	}
	return true, nil
}

func (m *MemoryStore) Save(namespace string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding draft %q: %w", namespace, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[namespace] = body
	return nil
}

func (m *MemoryStore) Clear(namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, namespace)
	return nil
}
