package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
)

// ErrNoStore is returned by Save when the manager has no snapshot store.
var ErrNoStore = errors.New("no snapshot store configured")

// DefaultLockTTL bounds how long a distributed lock outlives a crashed owner.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live instances of one schema, keyed by instance ID.
// An instance is handed to one caller at a time through WithInstance; the
// runtime.Context itself is single-owner and never shared concurrently.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	schema *schema.Schema
	store  ports.SnapshotStore // Optional long-term storage

	mu    sync.Mutex            // Global lock for the maps
	locks map[string]*lockEntry // Map of active locks
	live  map[string]*runtime.Context

	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	runtimeOpts []runtime.Option
	logger      *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore persists instances through a snapshot store.
func WithStore(store ports.SnapshotStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithRuntimeOptions are applied to every instance the manager creates.
func WithRuntimeOptions(opts ...runtime.Option) Option {
	return func(m *Manager) {
		m.runtimeOpts = append(m.runtimeOpts, opts...)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager for instances of s.
func NewManager(s *schema.Schema, opts ...Option) *Manager {
	m := &Manager{
		schema:  s,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*runtime.Context),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schema returns the schema shared by every instance.
func (m *Manager) Schema() *schema.Schema { return m.schema }

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(instanceID) after unlocking.
func (m *Manager) acquire(instanceID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[instanceID]
	if !exists {
		entry = &lockEntry{}
		m.locks[instanceID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[instanceID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, instanceID)
	}
}

// WithLock executes a function while holding the lock for the instance.
func (m *Manager) WithLock(ctx context.Context, instanceID string, fn func(context.Context) error) error {
	entry := m.acquire(instanceID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(instanceID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, instanceID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"instance_id", instanceID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// WithInstance runs fn with exclusive access to the instance. A missing
// instance is loaded from the store, or created from defaults.
func (m *Manager) WithInstance(ctx context.Context, instanceID string, fn func(context.Context, *runtime.Context) error) error {
	return m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		c, err := m.open(ctx, instanceID)
		if err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

// open returns the live instance. Callers hold the instance lock.
func (m *Manager) open(ctx context.Context, instanceID string) (*runtime.Context, error) {
	m.mu.Lock()
	c, ok := m.live[instanceID]
	m.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := m.restore(ctx, instanceID)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		c = m.newContext(instanceID)
		m.logger.Debug("instance created", "instance_id", instanceID)
	} else if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.live[instanceID] = c
	m.mu.Unlock()
	return c, nil
}

func (m *Manager) newContext(instanceID string) *runtime.Context {
	opts := append([]runtime.Option{
		runtime.WithLogger(m.logger.With("instance_id", instanceID)),
	}, m.runtimeOpts...)
	return runtime.New(m.schema, opts...)
}

// restore builds a fresh instance from the stored snapshot. The restore is
// not undoable: a loaded instance starts with empty history.
func (m *Manager) restore(ctx context.Context, instanceID string) (*runtime.Context, error) {
	if m.store == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	snap, err := m.store.Load(ctx, instanceID)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load instance %s: %w", instanceID, err)
	}
	c := m.newContext(instanceID)
	if err := c.Restore(ctx, snap); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to restore instance %s: %w", instanceID, err)
	}
	c.History().Clear()
	m.logger.Debug("instance loaded", "instance_id", instanceID, "snapshot_id", snap.ID)
	return c, nil
}

// Save persists a snapshot of the live instance.
func (m *Manager) Save(ctx context.Context, instanceID string) error {
	if m.store == nil {
		return fmt.Errorf("save %s: %w", instanceID, ErrNoStore)
	}
	return m.WithInstance(ctx, instanceID, func(ctx context.Context, c *runtime.Context) error {
		return m.store.Save(ctx, instanceID, c.Snapshot("save"))
	})
}

// Load discards the live instance, if any, and restores it from the store.
func (m *Manager) Load(ctx context.Context, instanceID string) error {
	return m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		c, err := m.restore(ctx, instanceID)
		if err != nil {
			return err
		}
		m.mu.Lock()
		old := m.live[instanceID]
		m.live[instanceID] = c
		m.mu.Unlock()
		if old != nil {
			old.Close()
		}
		return nil
	})
}

// Delete closes the live instance and removes it from the store.
func (m *Manager) Delete(ctx context.Context, instanceID string) error {
	return m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		m.mu.Lock()
		c := m.live[instanceID]
		delete(m.live, instanceID)
		m.mu.Unlock()
		if c != nil {
			c.Close()
		}
		if m.store == nil {
			return nil
		}
		return m.store.Delete(ctx, instanceID)
	})
}

// List returns the IDs of live and stored instances, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	m.mu.Lock()
	for id := range m.live {
		seen[id] = struct{}{}
	}
	m.mu.Unlock()

	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range stored {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes every live instance. Unsaved changes are lost.
func (m *Manager) Close() {
	m.mu.Lock()
	live := m.live
	m.live = make(map[string]*runtime.Context)
	m.mu.Unlock()
	for _, c := range live {
		c.Close()
	}
}
