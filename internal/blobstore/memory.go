package blobstore

import (
	"sync"
	"time"

	"github.com/flotillahq/flotilla/internal/model"
	"github.com/flotillahq/flotilla/internal/util"
)

type MemoryStore struct { // implements Store
	mu    sync.RWMutex
	blobs map[uint64]*model.StagedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[uint64]*model.StagedBlob),
	}
}

func (m *MemoryStore) Save(id uint64, filename string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(content))
	copy(stored, content)

	m.blobs[id] = &model.StagedBlob{
		ID:          id,
		Filename:    filename,
		Content:     stored,
		ContentHash: util.ContentHash(content),
		CreatedAt:   time.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) Get(id uint64) (*model.StagedBlob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return blob, nil
}

func (m *MemoryStore) Delete(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

func (m *MemoryStore) MaxID() (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blobs) == 0 {
		return 0, false, nil
	}

	var max uint64
	for id := range m.blobs {
		if id > max {
			max = id
		}
	}
	return max, true, nil
}
