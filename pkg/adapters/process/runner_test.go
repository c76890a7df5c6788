package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/process"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("validators are shell scripts")
	}
}

func TestRunner_Run(t *testing.T) {
	requireShell(t)
	ctx := context.Background()
	r := process.NewRunner()
	r.Register("even", "sh", "-c", `[ $(( $TENDRIL_VALUE % 2 )) -eq 0 ] || { echo "must be even" >&2; exit 1; }`)
	r.Register("stdin", "sh", "-c", `grep -q '"ok"'`)
	r.Register("silent", "sh", "-c", "exit 3")

	t.Run("accepts", func(t *testing.T) {
		assert.NoError(t, r.Run(ctx, "even", value.Int(4)))
	})

	t.Run("rejects with stderr", func(t *testing.T) {
		err := r.Run(ctx, "even", value.Int(3))
		assert.EqualError(t, err, "must be even")
	})

	t.Run("value on stdin as JSON", func(t *testing.T) {
		assert.NoError(t, r.Run(ctx, "stdin", value.Array(value.Text("ok"))))
		assert.Error(t, r.Run(ctx, "stdin", value.Text("nope")))
	})

	t.Run("exit code message", func(t *testing.T) {
		err := r.Run(ctx, "silent", value.Null())
		assert.EqualError(t, err, "rejected by silent (exit 3)")
	})

	t.Run("unregistered", func(t *testing.T) {
		err := r.Run(ctx, "hacker_script", value.Null())
		assert.ErrorContains(t, err, "not registered")
	})
}

func TestRunner_Timeout(t *testing.T) {
	requireShell(t)
	r := process.NewRunner(process.WithTimeout(50 * time.Millisecond))
	r.Register("slow", "sleep", "5")

	start := time.Now()
	err := r.Run(context.Background(), "slow", value.Null())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunner_RegistryAndCatalog(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "validators.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
validators:
  - name: host
    command: sh
    args: ["-c", "[ \"$TENDRIL_VALUE\" = \"$ALLOWED\" ] || { echo \"unknown host $TENDRIL_VALUE\" >&2; exit 1; }"]
    env: {ALLOWED: example.org}
`), 0o644))

	validators, err := process.LoadConfig(cfg)
	require.NoError(t, err)
	require.Contains(t, validators, "host")

	r := process.NewRunner(process.WithRegistry(validators), process.WithBaseDir(dir))
	assert.Equal(t, []string{"host"}, r.Names())

	catalog := schema.NewCatalog()
	r.RegisterAll(catalog)

	p, err := schema.Spec{Key: "host", Kind: "text", Async: []string{"host"}}.Build(catalog)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Empty(t, p.ValidateAsync(ctx, value.Text("example.org")))
	errs := p.ValidateAsync(ctx, value.Text("evil.test"))
	require.Len(t, errs, 1)
	assert.Equal(t, schema.CodeCustom, errs[0].Code)
	assert.Equal(t, "unknown host evil.test", errs[0].Message)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	got, err := process.LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(dir, "validators.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"validators":[{"name":"a","command":"true"}]}`), 0o644))
	got, err = process.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "true", got["a"].Command)

	require.NoError(t, os.WriteFile(path, []byte(`{"validators":[{"name":"a"}]}`), 0o644))
	_, err = process.LoadConfig(path)
	assert.Error(t, err)
}
