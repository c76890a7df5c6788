package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Context.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	historyLimit int
	mergeTimeout time.Duration
	defaultValid bool
	capacity     int
	debounce     time.Duration
	cross        []CrossValidator
	hooks        domain.LifecycleHooks
	now          func() time.Time
	bus          *event.Bus
	tracer       trace.Tracer
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHistoryLimit bounds the undo stack. The oldest entries are evicted.
func WithHistoryLimit(n int) Option {
	return func(c *config) { c.historyLimit = n }
}

// WithMergeTimeout enables merging of consecutive edits of the same key into
// a single undo entry when they happen within d of each other.
func WithMergeTimeout(d time.Duration) Option {
	return func(c *config) { c.mergeTimeout = d }
}

// WithDefaultValidity sets what IsValid reports for a key that was never
// validated. The default is true.
func WithDefaultValidity(valid bool) Option {
	return func(c *config) { c.defaultValid = valid }
}

// WithBroadcastCapacity sets the per-subscription buffer of the event bus.
// Ignored when WithBus is used.
func WithBroadcastCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithDebounce delays asynchronous validation started by SetAsync, so that
// only the last of several rapid calls on a key reaches the validators.
func WithDebounce(d time.Duration) Option {
	return func(c *config) { c.debounce = d }
}

// WithCrossValidator registers a validator run by ValidateAll after every
// per-parameter validator.
func WithCrossValidator(v CrossValidator) Option {
	return func(c *config) { c.cross = append(c.cross, v) }
}

// WithHooks registers lifecycle hooks. Calling it twice merges the hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) { c.hooks = c.hooks.Merge(hooks) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithBus makes the Context publish on an existing bus instead of creating
// its own.
func WithBus(bus *event.Bus) Option {
	return func(c *config) { c.bus = bus }
}

// WithTracer sets the tracer used for asynchronous validation spans. The
// default is the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) { c.tracer = t }
}
