package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to instances across replicas, so
// that one Context is only ever mutated by one owner.
type DistributedLocker interface {
	// Lock blocks until the lock for key (an instance ID) is acquired or ctx
	// is done. The lock expires after ttl if it is never released.
	// The returned UnlockFunc MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
