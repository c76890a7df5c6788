package ports_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/snapshot"
)

// jsonStore keeps snapshots as JSON documents, the way remote stores do.
type jsonStore struct {
	data map[string][]byte
}

func (m *jsonStore) Save(ctx context.Context, id string, snap *snapshot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.data[id] = data
	return nil
}

func (m *jsonStore) Load(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	data, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *jsonStore) Delete(ctx context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func (m *jsonStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	// The contract must hold for a store that goes through JSON.
	ports.RunSnapshotStoreContract(t, &jsonStore{data: make(map[string][]byte)})
}
