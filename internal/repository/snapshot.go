package repository

import (
	"context"

	"github.com/isaacphi/promptwheel/internal/domain"
)

// SnapshotStore persists the full in-memory state as one snapshot.
// Load returns an empty snapshot when nothing has been saved yet and an
// error when saved data exists but cannot be decoded.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snap *domain.Snapshot) error
}
