package repository

import (
	"context"

	"terminal-ai-chat/internal/domain/model"
)

// SnapshotStore persists the orchestrator's full state as a plain-data
// snapshot. Load returns domain.ErrNotFound when no snapshot exists yet.
// Implementations apply forward migrations before handing state back, so a
// loaded snapshot is always at model.SnapshotVersion.
type SnapshotStore interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
}
