package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ports.RunSnapshotStoreContract(t, store)
}

func TestFileStore_RejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	store := file.NewStore(t.TempDir())
	snap := snapshot.New("", time.Now(), value.Map{"a": value.Int(1)}, nil)

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, store.Save(ctx, id, snap), "id %q", id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFileStore_ListIgnoresStrayFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := file.NewStore(dir)

	require.NoError(t, store.Save(ctx, "b", snapshot.New("", time.Now(), value.Map{}, nil)))
	require.NoError(t, store.Save(ctx, "a", snapshot.New("", time.Now(), value.Map{}, nil)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-c-123.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.json"), 0o755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "never-created"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
