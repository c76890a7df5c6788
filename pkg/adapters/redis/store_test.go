package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisStore_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client)
	ports.RunSnapshotStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	instanceID := "instance-ttl"
	snap := snapshot.New("ttl", time.Now(), value.Map{"foo": value.Text("bar")}, nil)

	err = store.Save(ctx, instanceID, snap)
	assert.NoError(t, err)

	ids, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, ids, instanceID)

	// Fast forward miniredis so the key expires
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, instanceID)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	// The index is pruned against time.Now(), so real time has to pass too.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err = store.Save(ctx, "my-instance", snapshot.New("", time.Now(), value.Map{}, nil))
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-instance"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, "my-instance")
}
