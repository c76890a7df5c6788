package runtime_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAsync_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	s := schema.MustNew(schema.Define("user", value.KindText,
		schema.AsyncValidators(func(ctx context.Context, v value.Value) error {
			if s, _ := v.AsText(); s == "slow" {
				select {
				case <-release:
				case <-ctx.Done():
				}
				return schema.Violationf("taken", "already taken")
			}
			return nil
		}),
	))
	c := runtime.New(s)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.SetAsync(ctx, "user", value.Text("slow")))
	assert.True(t, c.Pending("user"))
	require.NoError(t, c.SetAsync(ctx, "user", value.Text("fast")))
	close(release)

	settleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, c.Settle(settleCtx))

	assert.False(t, c.Pending("user"))
	got, _ := c.Get("user")
	assert.True(t, value.Equal(value.Text("fast"), got))
	assert.True(t, c.IsValid("user"))
	assert.Equal(t, 1, c.History().UndoCount())
}

func TestSetAsync_Failure(t *testing.T) {
	s := schema.MustNew(schema.Define("user", value.KindText,
		schema.Validators(schema.MinLength(2)),
		schema.AsyncValidators(func(ctx context.Context, v value.Value) error {
			return schema.Violationf("taken", "already taken")
		}),
	))
	c := runtime.New(s)
	defer c.Close()
	ctx := context.Background()
	rec := record(c)

	assert.Error(t, c.SetAsync(ctx, "user", value.Text("a")), "sync failures are returned directly")
	assert.False(t, c.Pending("user"))

	require.NoError(t, c.SetAsync(ctx, "user", value.Text("ada")))
	require.NoError(t, c.Settle(ctx))
	got, _ := c.Get("user")
	assert.True(t, got.IsNull())
	assert.False(t, c.IsValid("user"))
	assert.Len(t, rec.of(event.ValidationFailed), 2)
}

func TestSetAsync_Debounce(t *testing.T) {
	var calls atomic.Int32
	s := schema.MustNew(schema.Define("q", value.KindText,
		schema.AsyncValidators(func(ctx context.Context, v value.Value) error {
			calls.Add(1)
			return nil
		}),
	))
	c := runtime.New(s, runtime.WithDebounce(50*time.Millisecond))
	defer c.Close()
	ctx := context.Background()

	for _, q := range []string{"a", "ab", "abc"} {
		require.NoError(t, c.SetAsync(ctx, "q", value.Text(q)))
	}
	require.NoError(t, c.Settle(ctx))

	assert.Equal(t, int32(1), calls.Load())
	got, _ := c.Get("q")
	assert.True(t, value.Equal(value.Text("abc"), got))
}

func TestSetAsync_SupersededBySet(t *testing.T) {
	release := make(chan struct{})
	s := schema.MustNew(schema.Define("user", value.KindText,
		schema.AsyncValidators(func(ctx context.Context, v value.Value) error {
			if s, _ := v.AsText(); s == "slow" {
				<-release
			}
			return nil
		}),
	))
	c := runtime.New(s)
	ctx := context.Background()

	require.NoError(t, c.SetAsync(ctx, "user", value.Text("slow")))
	require.NoError(t, c.Set(ctx, "user", value.Text("direct")))
	assert.False(t, c.Pending("user"))
	close(release)
	c.Close()

	assert.Equal(t, 0, c.Poll(ctx))
	got, _ := c.Get("user")
	assert.True(t, value.Equal(value.Text("direct"), got))
}

func TestSetAsync_WithoutAsyncValidatorsCommits(t *testing.T) {
	c := runtime.New(formSchema(t))
	require.NoError(t, c.SetAsync(context.Background(), "x", value.Int(4)))
	assert.False(t, c.Pending("x"))
	got, _ := c.Get("x")
	assert.True(t, value.Equal(value.Int(4), got))
}

func quickCheckSchema() *schema.Schema {
	return schema.MustNew(schema.Define("user", value.KindText,
		schema.Default(value.Text("orig")),
		schema.AsyncValidators(func(ctx context.Context, v value.Value) error { return nil }),
	))
}

func TestSetAsync_DiscardedByTransactionRollback(t *testing.T) {
	ctx := context.Background()
	c := runtime.New(quickCheckSchema())
	defer c.Close()

	tx := c.BeginTransaction(ctx, "Rename")
	require.NoError(t, c.SetAsync(ctx, "user", value.Text("changed")))
	assert.True(t, c.Pending("user"))
	tx.Close()
	assert.False(t, c.Pending("user"))

	settleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, c.Settle(settleCtx))

	got, _ := c.Get("user")
	assert.True(t, value.Equal(value.Text("orig"), got))
	assert.False(t, c.CanUndo())
}

func TestSetAsync_NestedCommitThenOuterRollback(t *testing.T) {
	ctx := context.Background()
	c := runtime.New(quickCheckSchema())
	defer c.Close()

	outer := c.BeginTransaction(ctx, "Outer")
	inner := c.BeginTransaction(ctx, "Inner")
	require.NoError(t, c.SetAsync(ctx, "user", value.Text("changed")))
	require.NoError(t, inner.Commit())
	assert.True(t, c.Pending("user"), "commit keeps the validation running")
	require.NoError(t, outer.Rollback())
	assert.False(t, c.Pending("user"))

	settleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, c.Settle(settleCtx))
	got, _ := c.Get("user")
	assert.True(t, value.Equal(value.Text("orig"), got))
}

func TestSetAsync_CommittedTransactionAppliesVerdict(t *testing.T) {
	ctx := context.Background()
	c := runtime.New(quickCheckSchema())
	defer c.Close()

	require.NoError(t, c.Transaction(ctx, "Rename", func() error {
		return c.SetAsync(ctx, "user", value.Text("changed"))
	}))

	settleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, c.Settle(settleCtx))
	got, _ := c.Get("user")
	assert.True(t, value.Equal(value.Text("changed"), got))
	assert.Equal(t, 1, c.History().UndoCount())
}
