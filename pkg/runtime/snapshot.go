package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/history"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
)

// Snapshot captures every value and state.
func (c *Context) Snapshot(label string) *snapshot.Snapshot {
	return snapshot.New(label, c.now(), c.values, c.states)
}

// Restore replaces every value and state with those of s and records the
// replacement as one undo entry. Keys s does not know are reset to Null and
// a fresh state; keys the schema does not declare are ignored. A single
// BatchUpdate listing every key is emitted.
func (c *Context) Restore(ctx context.Context, s *snapshot.Snapshot) error {
	if err := c.idle(c.schema.Keys()...); err != nil {
		return err
	}
	before := c.Snapshot("")
	_ = c.withSource(sourceRestore, func() error {
		c.restore(ctx, s)
		return nil
	})
	c.history.Record(&history.SnapshotCommand{Label: restoreLabel(s), Before: before, After: c.Snapshot(s.Label)})
	return nil
}

// RestorePartial overwrites only the keys present in s, recorded as one undo
// entry. A BatchUpdate lists the overwritten keys.
func (c *Context) RestorePartial(ctx context.Context, s *snapshot.Snapshot) error {
	var keys []value.Key
	for _, key := range c.schema.Keys() {
		if _, ok := s.Values[key]; ok {
			keys = append(keys, key)
		}
	}
	if err := c.idle(keys...); err != nil {
		return err
	}
	before := c.Snapshot("")
	_ = c.withSource(sourceRestore, func() error {
		c.overwrite(ctx, s.Values, s.States, keys)
		return nil
	})
	c.history.Record(&history.SnapshotCommand{Label: restoreLabel(s), Before: before, After: c.Snapshot(s.Label)})
	return nil
}

// Diff returns the changes leading from the current values to those of
// other.
func (c *Context) Diff(other *snapshot.Snapshot) snapshot.Diff {
	return snapshot.Compute(c.values, other.Values)
}

// ApplyDiff applies d to the current values as one undo entry. Removed keys
// become Null. Values bypass the pipeline gates; the validity flags of the
// touched keys are refreshed from the synchronous validators. Every key of d
// must be declared.
func (c *Context) ApplyDiff(ctx context.Context, d snapshot.Diff) error {
	keys := d.Keys()
	for _, key := range keys {
		if _, ok := c.schema.Lookup(key); !ok {
			return fmt.Errorf("apply diff: %w", domain.NotFound(key))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.idle(keys...); err != nil {
		return err
	}
	next := d.Applied(c.values)
	for _, key := range keys {
		if _, ok := next[key]; !ok {
			next[key] = value.Null()
		}
	}

	before := c.Snapshot("")
	_ = c.withSource(sourceRestore, func() error {
		c.overwrite(ctx, next, nil, keys)
		return nil
	})
	c.history.Record(&history.SnapshotCommand{Label: "Apply changes", Before: before, After: c.Snapshot("")})
	return nil
}

func (c *Context) restore(ctx context.Context, s *snapshot.Snapshot) {
	keys := c.schema.Keys()
	values := make(value.Map, len(keys))
	states := make(map[value.Key]domain.ParameterState, len(keys))
	for _, key := range keys {
		v, ok := s.Values[key]
		if !ok {
			v = value.Null()
		}
		values[key] = v
		st, ok := s.States[key]
		if !ok {
			st = domain.NewParameterState(c.defaultValid)
		}
		states[key] = st
	}
	for key := range s.Values {
		if _, ok := c.schema.Lookup(key); !ok {
			c.logger.Debug("snapshot key not declared, ignored", "key", key, "snapshot", s.ID)
		}
	}
	c.async.cancelAll()
	c.overwrite(ctx, values, states, keys)
	c.evaluateConditions(keys, true)
}

// overwrite replaces the values of keys inside a batch. States are taken
// from states when present there, and recomputed otherwise.
func (c *Context) overwrite(ctx context.Context, values value.Map, states map[value.Key]domain.ParameterState, keys []value.Key) {
	start := c.now()
	c.bus.BeginBatch()
	for _, key := range keys {
		c.async.supersede(key)
		old, v := c.values[key], values[key]
		c.values[key] = v
		if st, ok := states[key]; ok {
			c.states[key] = st.Clone()
		} else {
			c.revalidate(key, v)
		}
		if !value.Equal(old, v) {
			c.committed(ctx, key, old, v, start)
		}
	}
	c.bus.NoteChanged(keys...)
	c.bus.EndBatch()
	c.refreshDependents(keys...)
}

func restoreLabel(s *snapshot.Snapshot) string {
	if s.Label == "" {
		return "Restore snapshot"
	}
	return "Restore " + s.Label
}
