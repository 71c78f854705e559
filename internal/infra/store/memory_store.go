package store

import (
	"context"
	"sync"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/repository"
)

var _ repository.SnapshotStore = (*MemoryStore)(nil)

// MemoryStore keeps the encoded snapshot in memory. Used in tests and for
// throwaway sessions; state is gone when the process exits.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, domain.ErrNotFound
	}
	return decode(m.data, nil)
}

func (m *MemoryStore) Save(ctx context.Context, s *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := encode(s, nil)
	if err != nil {
		return err
	}
	m.data = b
	return nil
}
