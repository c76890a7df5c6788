package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/history"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/tendril/pkg/runtime"

// Context is one mutable instance of values bound to a Schema.
//
// A Context performs no locking. It must be used by one goroutine at a time;
// ownership may move between goroutines (see pkg/session). The Schema is
// only read and may be shared by any number of Contexts.
type Context struct {
	schema  *schema.Schema
	values  value.Map
	states  map[value.Key]domain.ParameterState
	bus     *event.Bus
	history *history.Manager

	// dependents maps a key to the parameters whose conditions read it.
	dependents map[value.Key][]value.Key

	async  *asyncTracker
	cross  []CrossValidator
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	// txs are the open transactions, innermost last.
	txs []*Transaction

	// changing holds the keys between BeforeChange and AfterChange.
	changing map[value.Key]bool

	defaultValid bool
	// source labels commits for hooks while undo, redo or rollback run.
	source string
}

// New creates a Context holding the defaults of s. Keys without a default
// hold Null.
func New(s *schema.Schema, opts ...Option) *Context {
	cfg := config{
		logger:       logging.NewNop(),
		historyLimit: history.DefaultMaxEntries,
		defaultValid: true,
		capacity:     event.DefaultCapacity,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bus == nil {
		cfg.bus = event.NewBus(event.WithCapacity(cfg.capacity), event.WithLogger(cfg.logger))
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}

	c := &Context{
		schema:       s,
		values:       make(value.Map, s.Len()),
		states:       make(map[value.Key]domain.ParameterState, s.Len()),
		bus:          cfg.bus,
		dependents:   make(map[value.Key][]value.Key),
		changing:     make(map[value.Key]bool),
		cross:        cfg.cross,
		hooks:        cfg.hooks,
		logger:       cfg.logger,
		tracer:       cfg.tracer,
		now:          cfg.now,
		defaultValid: cfg.defaultValid,
		source:       sourceSet,
	}
	c.async = newAsyncTracker(cfg.debounce)
	c.history = history.NewManager(target{c},
		history.WithMaxEntries(cfg.historyLimit),
		history.WithMergeTimeout(cfg.mergeTimeout),
		history.WithClock(cfg.now),
		history.WithLogger(cfg.logger),
		history.WithRollbackHook(c.rolledBack),
	)

	for _, p := range s.Parameters() {
		key := p.Key()
		v, ok := p.DefaultValue()
		if !ok {
			v = value.Null()
		}
		c.values[key] = v
		c.states[key] = domain.NewParameterState(c.defaultValid)
	}
	c.indexDependencies()
	c.evaluateConditions(s.Keys(), false)
	return c
}

// Schema returns the schema the Context is bound to.
func (c *Context) Schema() *schema.Schema { return c.schema }

// Bus returns the event bus the Context publishes on.
func (c *Context) Bus() *event.Bus { return c.bus }

// History returns the undo/redo manager.
func (c *Context) History() *history.Manager { return c.history }

// Get returns the committed value of key. A declared key without a value
// reads as Null.
func (c *Context) Get(key value.Key) (value.Value, error) {
	if _, ok := c.schema.Lookup(key); !ok {
		return value.Value{}, domain.NotFound(key)
	}
	return c.values[key], nil
}

// MustGet is Get for keys known to exist. Unknown keys read as Null.
func (c *Context) MustGet(key value.Key) value.Value { return c.values[key] }

// State returns a copy of the bookkeeping kept for key.
func (c *Context) State(key value.Key) (domain.ParameterState, error) {
	st, ok := c.states[key]
	if !ok {
		return domain.ParameterState{}, domain.NotFound(key)
	}
	return st.Clone(), nil
}

// IsValid reports the validity flag of key. Unknown keys report the default
// validity.
func (c *Context) IsValid(key value.Key) bool {
	if st, ok := c.states[key]; ok {
		return st.Valid
	}
	return c.defaultValid
}

// IsDirty reports whether any key was changed since it was created, reset or
// restored.
func (c *Context) IsDirty() bool {
	for _, st := range c.states {
		if st.Dirty {
			return true
		}
	}
	return false
}

// CollectValues returns a point-in-time copy of every value, for
// serialization.
func (c *Context) CollectValues() value.Map { return c.values.Clone() }

// OnEvent registers a synchronous callback, invoked on the goroutine that
// mutates the Context.
func (c *Context) OnEvent(fn event.Callback) (remove func()) { return c.bus.OnEvent(fn) }

// SubscribeAll opens a bounded asynchronous stream of every event.
func (c *Context) SubscribeAll() *event.Subscription { return c.bus.SubscribeAll() }

// SubscribeKey opens a bounded asynchronous stream of the events about key.
func (c *Context) SubscribeKey(key value.Key) *event.Subscription { return c.bus.SubscribeKey(key) }

// BeginBatch suppresses AfterChange events until the matching EndBatch,
// which emits a single BatchUpdate instead. Batches nest.
func (c *Context) BeginBatch() { c.bus.BeginBatch() }

// EndBatch closes the innermost batch. It reports false when none was open.
func (c *Context) EndBatch() bool { return c.bus.EndBatch() }

// Close cancels outstanding asynchronous validations, waits for them and
// closes every subscription.
func (c *Context) Close() {
	c.async.cancelAll()
	c.async.wait()
	c.bus.Close()
}

func (c *Context) state(key value.Key) domain.ParameterState {
	st, ok := c.states[key]
	if !ok {
		return domain.NewParameterState(c.defaultValid)
	}
	return st
}

// env exposes the Context to expression evaluation.
type env struct{ c *Context }

func (e env) Get(key value.Key) (value.Value, bool) {
	v, ok := e.c.values[key]
	return v, ok
}

func (e env) IsValid(key value.Key) bool { return e.c.IsValid(key) }
