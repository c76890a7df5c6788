package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/history"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
)

// Commit sources reported to OnCommit hooks.
const (
	sourceSet      = "set"
	sourceReset    = "reset"
	sourceUndo     = "undo"
	sourceRedo     = "redo"
	sourceRestore  = "restore"
	sourceRollback = "rollback"
)

// Set runs the mutation pipeline for key:
//
//  1. resolve the parameter (domain.ErrNotFound)
//  2. transform, which never fails
//  3. check the kind (*domain.TypeMismatchError)
//  4. run the synchronous validators, then the asynchronous ones, keeping
//     every error (*domain.ValidationFailure)
//  5. commit between BeforeChange and AfterChange and record the edit
//
// A failed call leaves the committed value untouched.
func (c *Context) Set(ctx context.Context, key value.Key, v value.Value) error {
	cmd, err := c.set(ctx, key, v)
	if err != nil {
		return err
	}
	c.history.Record(cmd)
	return nil
}

// SetWithoutHistory is Set without an undo entry.
func (c *Context) SetWithoutHistory(ctx context.Context, key value.Key, v value.Value) error {
	_, err := c.set(ctx, key, v)
	return err
}

func (c *Context) set(ctx context.Context, key value.Key, raw value.Value) (*history.SetValueCommand, error) {
	if err := c.idle(key); err != nil {
		return nil, err
	}
	start := c.now()
	p, v, err := c.prepare(key, raw)
	if err != nil {
		return nil, err
	}
	c.async.supersede(key)

	c.bus.Emit(event.Event{Type: event.ValidationStarted, Key: key, New: v})
	errs := p.ValidateSync(v)
	errs = append(errs, c.validateAsync(ctx, p, v)...)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("set %q: %w", key, err)
	}
	if len(errs) > 0 {
		return nil, c.reject(ctx, key, errs, start)
	}
	return c.accept(ctx, key, v, start), nil
}

// prepare resolves key and returns the transformed, kind-checked value.
func (c *Context) prepare(key value.Key, raw value.Value) (schema.Parameter, value.Value, error) {
	p, ok := c.schema.Lookup(key)
	if !ok {
		return nil, value.Value{}, domain.NotFound(key)
	}
	v := p.Transform(raw)
	if !schema.CheckKind(p, v) {
		return nil, value.Value{}, &domain.TypeMismatchError{Key: key, Expected: p.ExpectedKind(), Got: v.Kind()}
	}
	return p, v, nil
}

func (c *Context) reject(ctx context.Context, key value.Key, errs []schema.FieldError, start time.Time) error {
	st := c.state(key)
	st.Valid = false
	st.Validated = true
	st.Errors = errs
	st.LastValidated = c.now()
	c.states[key] = st

	c.bus.Emit(event.Event{Type: event.ValidationFailed, Key: key, Errors: errs})
	c.touch(key)
	if c.hooks.OnValidationFailed != nil {
		c.hooks.OnValidationFailed(ctx, &domain.ValidationEvent{Key: key, Errors: errs, Duration: c.now().Sub(start)})
	}
	c.logger.Debug("value rejected", "key", key, "errors", len(errs))
	c.refreshDependents(key)
	return &domain.ValidationFailure{Key: key, Errors: errs}
}

func (c *Context) accept(ctx context.Context, key value.Key, v value.Value, start time.Time) *history.SetValueCommand {
	st := c.state(key)
	st.Valid = true
	st.Validated = true
	st.Errors = nil
	st.LastValidated = c.now()
	st.Dirty = true
	c.states[key] = st
	c.bus.Emit(event.Event{Type: event.ValidationPassed, Key: key, New: v})

	old := c.commit(ctx, key, v, start)
	c.touch(key)
	c.refreshDependents(key)
	return &history.SetValueCommand{Key: key, Old: old, New: v}
}

// commit stores v between BeforeChange and AfterChange and returns the
// previous value. Until AfterChange has been delivered, key refuses further
// mutations with domain.ErrChangeInProgress.
func (c *Context) commit(ctx context.Context, key value.Key, v value.Value, start time.Time) value.Value {
	old := c.values[key]
	c.changing[key] = true
	c.bus.Emit(event.Event{Type: event.BeforeChange, Key: key, Old: old, New: v})
	c.values[key] = v
	c.bus.Emit(event.Event{Type: event.AfterChange, Key: key, Old: old, New: v})
	delete(c.changing, key)
	c.committed(ctx, key, old, v, start)
	return old
}

// idle fails when any of keys is in the middle of a commit.
func (c *Context) idle(keys ...value.Key) error {
	for _, key := range keys {
		if c.changing[key] {
			return fmt.Errorf("change %q: %w", key, domain.ErrChangeInProgress)
		}
	}
	return nil
}

func (c *Context) committed(ctx context.Context, key value.Key, old, v value.Value, start time.Time) {
	if c.hooks.OnCommit != nil {
		c.hooks.OnCommit(ctx, &domain.CommitEvent{
			Key:      key,
			Old:      old,
			New:      v,
			Duration: c.now().Sub(start),
			Source:   c.source,
		})
	}
	c.logger.Debug("value committed", "key", key, "source", c.source)
}

func (c *Context) touch(key value.Key) {
	st := c.state(key)
	if st.Touched {
		return
	}
	st.Touched = true
	c.states[key] = st
	c.bus.Emit(event.Event{Type: event.Touched, Key: key})
}

// Reset restores the declared default of key. The default bypasses the
// transform and validation gates; the validity flags are refreshed from the
// synchronous validators.
func (c *Context) Reset(ctx context.Context, key value.Key) error {
	p, ok := c.schema.Lookup(key)
	if !ok {
		return domain.NotFound(key)
	}
	def, ok := p.DefaultValue()
	if !ok {
		return fmt.Errorf("reset %q: %w", key, domain.ErrNoDefaultValue)
	}
	if err := c.idle(key); err != nil {
		return err
	}
	c.async.supersede(key)

	var old value.Value
	_ = c.withSource(sourceReset, func() error {
		old = c.write(ctx, key, def)
		return nil
	})
	st := c.state(key)
	st.Dirty = false
	c.states[key] = st
	c.bus.Emit(event.Event{Type: event.Reset, Key: key, New: def})
	c.history.Record(&history.ResetCommand{Key: key, Old: old, Default: def})
	return nil
}

// write commits v as is. Used to replay history, where values already
// passed the pipeline once.
func (c *Context) write(ctx context.Context, key value.Key, v value.Value) value.Value {
	start := c.now()
	c.revalidate(key, v)
	old := c.commit(ctx, key, v, start)
	c.refreshDependents(key)
	return old
}

// revalidate refreshes the validity flags of key for v, without events.
func (c *Context) revalidate(key value.Key, v value.Value) {
	p, ok := c.schema.Lookup(key)
	if !ok {
		return
	}
	errs := p.ValidateSync(v)
	st := c.state(key)
	st.Valid = len(errs) == 0
	st.Validated = true
	st.Errors = errs
	st.LastValidated = c.now()
	st.Dirty = true
	c.states[key] = st
}

func (c *Context) withSource(source string, fn func() error) error {
	prev := c.source
	c.source = source
	defer func() { c.source = prev }()
	return fn()
}

// target is the face the Context shows to its history.
type target struct{ c *Context }

func (t target) Write(ctx context.Context, key value.Key, v value.Value) error {
	if _, ok := t.c.schema.Lookup(key); !ok {
		return domain.NotFound(key)
	}
	if err := t.c.idle(key); err != nil {
		return err
	}
	t.c.async.supersede(key)
	t.c.write(ctx, key, v)
	return nil
}

func (t target) Restore(ctx context.Context, s *snapshot.Snapshot) error {
	if err := t.c.idle(t.c.schema.Keys()...); err != nil {
		return err
	}
	t.c.restore(ctx, s)
	return nil
}
