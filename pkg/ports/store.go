package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/snapshot"
)

// SnapshotStore persists instance snapshots, keyed by instance ID.
// This allows an instance to be dropped from memory and resumed later.
type SnapshotStore interface {
	// Save persists the snapshot for a given instance ID, replacing any
	// previous one.
	Save(ctx context.Context, instanceID string, snap *snapshot.Snapshot) error

	// Load retrieves the snapshot for a given instance ID.
	// Returns domain.ErrSnapshotNotFound if the instance was never saved.
	Load(ctx context.Context, instanceID string) (*snapshot.Snapshot, error)

	// Delete removes the snapshot for a given instance ID.
	Delete(ctx context.Context, instanceID string) error

	// List returns the IDs of every saved instance.
	List(ctx context.Context) ([]string, error)
}
