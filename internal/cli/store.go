package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/adapters/file"
	redisAdapter "github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/adapters/sqlite"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/redis/go-redis/v9"
)

// DefaultFileStore is where instances go when no store is configured.
var DefaultFileStore = filepath.Join(".tendril", "instances")

// Backend is an opened snapshot store and, for shared backends, the lock
// that serializes access to an instance across processes.
type Backend struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker
	close  func() error
}

// SessionOptions wires the backend into a session manager.
func (b *Backend) SessionOptions() []session.Option {
	if b == nil {
		return nil
	}
	opts := []session.Option{session.WithStore(b.Store)}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return opts
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend parses a store spec and opens it. An empty spec returns nil.
//
//	file:.tendril/instances
//	sqlite:tendril.db
//	redis://localhost:6379/0
//
// The middlewares wrap the store, the first one outermost.
func OpenBackend(ctx context.Context, spec string, mws ...middleware.Middleware) (*Backend, error) {
	b, err := openBackend(ctx, spec)
	if err != nil || b == nil {
		return b, err
	}
	if len(mws) > 0 {
		b.Store = middleware.Chain(mws...)(b.Store)
	}
	return b, nil
}

func openBackend(ctx context.Context, spec string) (*Backend, error) {
	switch {
	case spec == "":
		return nil, nil
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		opt, err := redis.ParseURL(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &Backend{
			Store:  redisAdapter.NewFromClient(client),
			Locker: redisAdapter.NewLocker(client, "tendril:"),
			close:  client.Close,
		}, nil
	case strings.HasPrefix(spec, "sqlite:"):
		store, err := sqlite.Open(ctx, strings.TrimPrefix(spec, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, close: store.Close}, nil
	case strings.HasPrefix(spec, "file:"):
		return &Backend{Store: file.NewStore(strings.TrimPrefix(spec, "file:"))}, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want file:<dir>, sqlite:<path> or redis://...)", spec)
	}
}

// StoreMiddleware builds the store wrappers requested by the options: PII
// masking first, then encryption.
func (o Options) StoreMiddleware() ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(o.Mask) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(o.Mask))
	}
	if o.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(o.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EncryptionKeyEnv, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("invalid %s: want 32 bytes, got %d", EncryptionKeyEnv, len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return mws, nil
}

// OpenBackend opens o.Store wrapped in the configured middleware.
func (o Options) OpenBackend(ctx context.Context) (*Backend, error) {
	mws, err := o.StoreMiddleware()
	if err != nil {
		return nil, err
	}
	return OpenBackend(ctx, o.Store, mws...)
}
