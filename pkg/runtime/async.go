package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// asyncTracker keeps the validations started by SetAsync. Every field but
// arrived belongs to the owner of the Context; background validations only
// append to arrived.
type asyncTracker struct {
	debounce time.Duration
	gens     map[value.Key]uint64
	pending  map[value.Key]*pendingSet

	mu      sync.Mutex
	arrived []asyncResult
	ready   chan struct{}
	wg      sync.WaitGroup
}

type pendingSet struct {
	gen    uint64
	value  value.Value
	start  time.Time
	cancel context.CancelFunc
}

type asyncResult struct {
	key  value.Key
	gen  uint64
	errs []schema.FieldError
	err  error
}

func newAsyncTracker(debounce time.Duration) *asyncTracker {
	return &asyncTracker{
		debounce: debounce,
		gens:     make(map[value.Key]uint64),
		pending:  make(map[value.Key]*pendingSet),
		ready:    make(chan struct{}, 1),
	}
}

// supersede makes any validation in flight for key stale.
func (t *asyncTracker) supersede(key value.Key) {
	if p, ok := t.pending[key]; ok {
		p.cancel()
		delete(t.pending, key)
	}
	t.gens[key]++
}

func (t *asyncTracker) cancelAll() {
	for key := range t.pending {
		t.supersede(key)
	}
}

func (t *asyncTracker) deliver(r asyncResult) {
	t.mu.Lock()
	t.arrived = append(t.arrived, r)
	t.mu.Unlock()
	select {
	case t.ready <- struct{}{}:
	default:
	}
}

func (t *asyncTracker) drain() []asyncResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.arrived
	t.arrived = nil
	return out
}

func (t *asyncTracker) wait() { t.wg.Wait() }

// SetAsync is Set for parameters with slow validators. The transform, the
// kind check and the synchronous validators run on the caller, and their
// failures are returned as with Set. Asynchronous validators then run in
// the background, after the debounce delay if one is configured, and their
// verdict is applied by Poll or Settle.
//
// A later SetAsync, Set, Reset or restore of the same key supersedes the
// pending validation; its result is discarded when it arrives. Parameters
// without asynchronous validators are committed immediately.
func (c *Context) SetAsync(ctx context.Context, key value.Key, raw value.Value) error {
	if err := c.idle(key); err != nil {
		return err
	}
	start := c.now()
	p, v, err := c.prepare(key, raw)
	if err != nil {
		return err
	}
	c.async.supersede(key)

	c.bus.Emit(event.Event{Type: event.ValidationStarted, Key: key, New: v})
	if errs := p.ValidateSync(v); len(errs) > 0 {
		return c.reject(ctx, key, errs, start)
	}
	if !hasAsync(p) {
		c.history.Record(c.accept(ctx, key, v, start))
		return nil
	}

	gen := c.async.gens[key]
	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.async.pending[key] = &pendingSet{gen: gen, value: v, start: start, cancel: cancel}
	if t := c.currentTransaction(); t != nil {
		t.async = append(t.async, key)
	}
	c.async.wg.Add(1)
	go func() {
		defer c.async.wg.Done()
		if d := c.async.debounce; d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-actx.Done():
				timer.Stop()
				return
			}
		}
		errs := c.validateAsync(actx, p, v)
		c.async.deliver(asyncResult{key: key, gen: gen, errs: errs, err: actx.Err()})
	}()
	return nil
}

// Poll applies the asynchronous verdicts that arrived since the last call
// and returns how many were applied. Stale verdicts are dropped.
func (c *Context) Poll(ctx context.Context) int {
	applied := 0
	for _, r := range c.async.drain() {
		pend, ok := c.async.pending[r.key]
		if !ok || pend.gen != r.gen {
			c.logger.Debug("stale async result discarded", "key", r.key, "generation", r.gen)
			continue
		}
		delete(c.async.pending, r.key)
		pend.cancel()
		if r.err != nil {
			c.logger.Debug("async validation cancelled", "key", r.key, "error", r.err)
			continue
		}
		if len(r.errs) > 0 {
			_ = c.reject(ctx, r.key, r.errs, pend.start)
		} else {
			c.history.Record(c.accept(ctx, r.key, pend.value, pend.start))
		}
		applied++
	}
	return applied
}

// Settle waits until every pending validation was applied or ctx is done.
func (c *Context) Settle(ctx context.Context) error {
	for {
		c.Poll(ctx)
		if len(c.async.pending) == 0 {
			return nil
		}
		select {
		case <-c.async.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pending reports whether key has a validation in flight.
func (c *Context) Pending(key value.Key) bool {
	_, ok := c.async.pending[key]
	return ok
}
