package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/snapshot"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, instanceID string, snap *snapshot.Snapshot) error {
	return nil
}
func (m *MockStore) Load(ctx context.Context, instanceID string) (*snapshot.Snapshot, error) {
	return nil, nil
}
func (m *MockStore) Delete(ctx context.Context, instanceID string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)          { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	s, err := schema.New()
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(s, WithStore(&MockStore{}))
	ctx := context.Background()
	count := 10000

	// 1. Create and Delete many instances
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("instance-%d", i)
		_ = mgr.WithLock(ctx, id, func(context.Context) error { return nil })
		_ = mgr.Delete(ctx, id)
	}

	// 2. Count locks remaining in map
	lockCount := len(mgr.locks)
	t.Logf("Instances Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
