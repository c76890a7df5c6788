package tendril

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/file"
	loamAdapter "github.com/aretw0/tendril/pkg/adapters/loam"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/session"
)

// Engine is the high-level entry point for the tendril library.
// It owns a schema and hands out instances of it.
type Engine struct {
	mu          sync.RWMutex
	schema      *schema.Schema
	loader      ports.SchemaLoader
	catalog     *schema.Catalog
	runtimeOpts []runtime.Option
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks on every instance.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom SchemaLoader, bypassing path detection.
func WithLoader(l ports.SchemaLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCatalog resolves named transforms and validators referenced by schema
// documents.
func WithCatalog(c *schema.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRuntimeOptions are applied to every instance the engine creates.
func WithRuntimeOptions(opts ...runtime.Option) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, opts...)
	}
}

// New loads a schema and returns an Engine serving it.
// A directory path is read as a Loam repository (one document per
// parameter); a file path is read as a single YAML or JSON schema.
// If WithLoader is provided, path is only used as the engine's name.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.loader == nil {
		if path == "" {
			return nil, fmt.Errorf("path is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("schema source: %w", err)
		}

		if info.IsDir() {
			eng.Name = filepath.Base(absPath)
			l, err := loamAdapter.Open(absPath, eng.catalog)
			if err != nil {
				return nil, err
			}
			eng.loader = l
		} else {
			eng.Name = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
			eng.loader = file.NewLoader(absPath, eng.catalog, file.WithLogger(eng.logger))
		}
	} else if path != "" {
		eng.Name = filepath.Base(path)
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("schema", eng.Name)
	}

	if err := eng.Reload(context.Background()); err != nil {
		return nil, err
	}
	return eng, nil
}

// Reload rebuilds the schema from the loader. Instances created before the
// reload keep the schema they were created with.
func (e *Engine) Reload(ctx context.Context) error {
	s, err := e.loader.LoadSchema(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	e.mu.Lock()
	e.schema = s
	e.mu.Unlock()
	e.logger.Debug("schema loaded", "parameters", s.Len())
	return nil
}

// Schema returns the current schema.
func (e *Engine) Schema() *schema.Schema {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schema
}

func (e *Engine) baseOptions() []runtime.Option {
	opts := []runtime.Option{runtime.WithHooks(e.hooks)}
	return append(opts, e.runtimeOpts...)
}

// NewInstance creates a standalone instance of the current schema. opts are
// applied after the engine's own options.
func (e *Engine) NewInstance(opts ...runtime.Option) *runtime.Context {
	all := append([]runtime.Option{runtime.WithLogger(e.logger)}, e.baseOptions()...)
	return runtime.New(e.Schema(), append(all, opts...)...)
}

// Sessions creates a Manager for concurrent, optionally persisted instances
// of the current schema.
func (e *Engine) Sessions(opts ...session.Option) *session.Manager {
	base := []session.Option{
		session.WithLogger(e.logger),
		session.WithRuntimeOptions(e.baseOptions()...),
	}
	return session.NewManager(e.Schema(), append(base, opts...)...)
}

// Watch returns a channel that signals when the underlying schema changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying SchemaLoader used by the engine.
func (e *Engine) Loader() ports.SchemaLoader {
	return e.loader
}
