package domain

import (
	"context"

	"github.com/kompox/aksgraph/domain/model"
)

// SnapshotRepository stores and retrieves stack snapshots.
type SnapshotRepository interface {
	// Get returns the snapshot of stack or model.ErrStackNotFound.
	Get(ctx context.Context, stack string) (*model.Snapshot, error)
	// Save replaces the snapshot of s.Stack.
	Save(ctx context.Context, s *model.Snapshot) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, stack string) error
}

// SecretStore is implemented by repositories that may be unable to persist
// secret values.
type SecretStore interface {
	CanStoreSecrets() bool
}
