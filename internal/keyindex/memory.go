package keyindex

import (
	"strings"
	"sync"

	"github.com/flotillahq/flotilla/internal/model"
)

type MemoryIndex struct { // implements Index
	mu      sync.RWMutex
	entries map[string]uint64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]uint64),
	}
}

func (m *MemoryIndex) Set(key model.SlotKey, blobID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key.String()] = blobID
	return nil
}

func (m *MemoryIndex) Get(key model.SlotKey) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blobID, ok := m.entries[key.String()]
	return blobID, ok, nil
}

func (m *MemoryIndex) Delete(key model.SlotKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key.String())
	return nil
}

func (m *MemoryIndex) ScanByPrefix(prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []Entry
	for keyStr, blobID := range m.entries {
		if !strings.HasPrefix(keyStr, prefix) {
			continue
		}
		key, err := model.ParseSlotKey(keyStr)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Key: key, BlobID: blobID})
	}

	return entries, nil
}
