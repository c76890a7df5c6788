package tendril_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileSchema = `
parameters:
  - key: width
    kind: int
    default: 640
    transforms:
      - clamp: {min: 1, max: 4096}
  - key: units
    kind: text
    default: px
    validators:
      - one_of: [px, em]
`

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fileSchema), 0o644))

	eng, err := tendril.New(path)
	require.NoError(t, err)
	assert.Equal(t, "canvas", eng.Name)
	assert.Equal(t, []value.Key{"width", "units"}, eng.Schema().Keys())

	inst := eng.NewInstance()
	defer inst.Close()
	require.NoError(t, inst.Set(context.Background(), "width", value.Int(9000)))
	assert.True(t, value.Equal(value.Int(4096), inst.MustGet("width")))
}

func TestNew_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "title.md"), []byte("---\nkind: text\ndefault: untitled\n---\nDocument title.\n"), 0o644))

	eng, err := tendril.New(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), eng.Name)

	inst := eng.NewInstance()
	defer inst.Close()
	assert.True(t, value.Equal(value.Text("untitled"), inst.MustGet("title")))
}

func TestNew_Errors(t *testing.T) {
	_, err := tendril.New("")
	assert.Error(t, err, "path is required without a loader")

	_, err = tendril.New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("parameters:\n  - key: x\n    kind: matrix\n"), 0o644))
	_, err = tendril.New(bad)
	assert.Error(t, err)
}

func TestEngine_HooksAndOptions(t *testing.T) {
	var commits int
	loader := memory.NewLoader(schema.Define("n", value.KindInt, schema.Default(value.Int(0))))
	eng, err := tendril.New("", tendril.WithLoader(loader),
		tendril.WithLifecycleHooks(domain.LifecycleHooks{
			OnCommit: func(context.Context, *domain.CommitEvent) { commits++ },
		}),
		tendril.WithRuntimeOptions(runtime.WithHistoryLimit(1)),
	)
	require.NoError(t, err)

	ctx := context.Background()
	inst := eng.NewInstance()
	defer inst.Close()
	require.NoError(t, inst.Set(ctx, "n", value.Int(1)))
	require.NoError(t, inst.Set(ctx, "n", value.Int(2)))
	assert.Equal(t, 2, commits)

	ok, err := inst.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, inst.CanUndo(), "history limit must apply")

	sessions := eng.Sessions()
	defer sessions.Close()
	require.NoError(t, sessions.WithInstance(ctx, "a", func(ctx context.Context, c *runtime.Context) error {
		return c.Set(ctx, "n", value.Int(5))
	}))
	assert.Equal(t, 4, commits, "undo commit plus session commit")
}

func TestEngine_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fileSchema), 0o644))

	eng, err := tendril.New(path)
	require.NoError(t, err)
	before := eng.NewInstance()
	defer before.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := eng.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(fileSchema+"  - key: dpi\n    kind: int\n    default: 72\n"), 0o644))
	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}
	require.NoError(t, eng.Reload(ctx))

	assert.Equal(t, 3, eng.Schema().Len())
	assert.Equal(t, 2, before.Schema().Len(), "existing instances keep their schema")
}

func TestEngine_WatchUnsupported(t *testing.T) {
	eng, err := tendril.New("", tendril.WithLoader(memory.NewLoader()))
	require.NoError(t, err)
	_, err = eng.Watch(context.Background())
	assert.Error(t, err)
}
