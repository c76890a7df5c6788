package event

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/value"
)

// DefaultCapacity is the per-subscription buffer used when none is set.
const DefaultCapacity = 64

// Callback receives events synchronously on the emitting goroutine.
type Callback func(Event)

// Bus distributes events through two paths: synchronous callbacks, invoked
// in registration order, and buffered subscriptions that never block the
// emitter. Emitting is meant for the single owner of a runtime instance;
// registering and closing subscriptions is safe from any goroutine.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	callbacks []callback
	subs      map[uint64]*Subscription
	capacity  int
	logger    *slog.Logger

	batchDepth int
	batchKeys  []value.Key
	batchSeen  map[value.Key]struct{}

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

type callback struct {
	id uint64
	fn Callback
}

// Option configures a Bus.
type Option func(*Bus)

// WithCapacity sets the buffer size of each subscription.
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithLogger sets the logger used for dropped events and callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// NewBus creates a bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[uint64]*Subscription),
		capacity: DefaultCapacity,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnEvent registers a synchronous callback. The returned function removes it.
func (b *Bus) OnEvent(fn Callback) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.callbacks = append(b.callbacks, callback{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, cb := range b.callbacks {
			if cb.id == id {
				b.callbacks = append(b.callbacks[:i:i], b.callbacks[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll opens a subscription receiving every event.
func (b *Bus) SubscribeAll() *Subscription {
	return b.subscribe(func(Event) bool { return true })
}

// SubscribeKey opens a subscription receiving the events about key,
// including batch updates that list it.
func (b *Bus) SubscribeKey(key value.Key) *Subscription {
	return b.subscribe(func(e Event) bool { return e.Concerns(key) })
}

func (b *Bus) subscribe(filter func(Event) bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscription{
		id:     b.nextID,
		ch:     make(chan Event, b.capacity),
		filter: filter,
		bus:    b,
	}
	b.subs[s.id] = s
	return s
}

// Emit publishes e. Inside a batch, AfterChange events are folded into the
// BatchUpdate sent when the outermost batch ends.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	if b.batchDepth > 0 && e.Type == AfterChange {
		b.noteBatchKey(e.Key)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.publish(e)
}

// BeginBatch opens a batch. Batches nest.
func (b *Bus) BeginBatch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.batchDepth == 0 {
		b.batchKeys = nil
		b.batchSeen = make(map[value.Key]struct{})
	}
	b.batchDepth++
}

// EndBatch closes a batch. Closing the outermost batch emits exactly one
// BatchUpdate listing every key changed inside it, in first-change order.
// It reports false when no batch was open.
func (b *Bus) EndBatch() bool {
	b.mu.Lock()
	if b.batchDepth == 0 {
		b.mu.Unlock()
		return false
	}
	b.batchDepth--
	if b.batchDepth > 0 {
		b.mu.Unlock()
		return true
	}
	keys := b.batchKeys
	b.batchKeys, b.batchSeen = nil, nil
	b.mu.Unlock()

	b.publish(Event{Type: BatchUpdate, Keys: keys})
	return true
}

// InBatch reports whether a batch is open.
func (b *Bus) InBatch() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batchDepth > 0
}

// NoteChanged records key as changed in the open batch without emitting.
// Outside a batch it does nothing.
func (b *Bus) NoteChanged(keys ...value.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.batchDepth == 0 {
		return
	}
	for _, k := range keys {
		b.noteBatchKey(k)
	}
}

func (b *Bus) noteBatchKey(key value.Key) {
	if _, ok := b.batchSeen[key]; ok {
		return
	}
	b.batchSeen[key] = struct{}{}
	b.batchKeys = append(b.batchKeys, key)
}

func (b *Bus) publish(e Event) {
	b.published.Add(1)

	b.mu.Lock()
	cbs := make([]callback, len(b.callbacks))
	copy(cbs, b.callbacks)
	for _, s := range b.subs {
		if s.filter(e) {
			s.offer(e)
		}
	}
	b.mu.Unlock()

	for _, cb := range cbs {
		b.invoke(cb.fn, e)
	}
}

func (b *Bus) invoke(fn Callback, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event callback panicked", "event", e.Type.String(), "panic", r)
		}
	}()
	fn(e)
	b.delivered.Add(1)
}

// Stats is a point-in-time view of the bus counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	Subscriptions int
	Callbacks     int
}

func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		Subscriptions: len(b.subs),
		Callbacks:     len(b.callbacks),
	}
}

// Close closes every subscription. Callbacks stay registered.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
	}
}
