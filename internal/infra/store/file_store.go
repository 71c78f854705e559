package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/repository"
	"terminal-ai-chat/internal/infra/security"
)

// Compile-time assurance this store satisfies the port
var _ repository.SnapshotStore = (*FileStore)(nil)

// FileStore persists the snapshot as a single JSON file. Writes go through
// a temp file plus rename so a crash mid-save never truncates the previous
// state. A nil cipher stores plaintext.
type FileStore struct {
	mu     sync.Mutex
	path   string
	cipher *security.Cipher
}

func NewFileStore(path string, cipher *security.Cipher) *FileStore {
	return &FileStore{path: path, cipher: cipher}
}

func (f *FileStore) Load(ctx context.Context) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return decode(b, f.cipher)
}

func (f *FileStore) Save(ctx context.Context, s *model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := encode(s, f.cipher)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
