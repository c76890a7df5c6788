package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	instanceID := "contract-test-instance-" + time.Now().Format("20060102150405")

	newSnapshot := func() *snapshot.Snapshot {
		st := domain.NewParameterState(true)
		st.Dirty = true
		return snapshot.New("contract", time.Now().UTC().Truncate(time.Millisecond), value.Map{
			"name":  value.Text("ada"),
			"count": value.Int(42),
			"ratio": value.Float(42),
			"tags":  value.Array(value.Text("a")),
			"none":  value.Null(),
		}, map[value.Key]domain.ParameterState{"name": st})
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot()
		require.NoError(t, store.Save(ctx, instanceID, snap), "Save should not return error")

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.ID, loaded.ID)
		assert.Equal(t, snap.Label, loaded.Label)
		assert.True(t, snap.Time.Equal(loaded.Time))
		require.Len(t, loaded.Values, len(snap.Values))
		for k, v := range snap.Values {
			assert.True(t, value.Equal(v, loaded.Values[k]), "value %q", k)
		}
		// Int and Float must survive persistence as distinct kinds.
		assert.Equal(t, value.KindInt, loaded.Values["count"].Kind())
		assert.Equal(t, value.KindFloat, loaded.Values["ratio"].Kind())
		assert.True(t, loaded.States["name"].Dirty)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		first, second := newSnapshot(), newSnapshot()
		second.Values["name"] = value.Text("grace")
		require.NoError(t, store.Save(ctx, instanceID, first))
		require.NoError(t, store.Save(ctx, instanceID, second))

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, loaded.ID)
		assert.True(t, value.Equal(value.Text("grace"), loaded.Values["name"]))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, instanceID, newSnapshot()))

		err := store.Delete(ctx, instanceID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, instanceID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := instanceID + "-1"
		id2 := instanceID + "-2"
		_ = store.Save(ctx, id1, newSnapshot())
		_ = store.Save(ctx, id2, newSnapshot())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
