package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

func (c *Context) indexDependencies() {
	for _, p := range c.schema.Parameters() {
		keys := expr.Dependencies(p.VisibleWhen())
		keys = append(keys, expr.Dependencies(p.EnabledWhen())...)
		keys = append(keys, p.Dependencies()...)

		seen := make(map[value.Key]struct{}, len(keys))
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			c.dependents[k] = append(c.dependents[k], p.Key())
		}
	}
}

// refreshDependents re-evaluates the conditions of every parameter reading
// one of changed.
func (c *Context) refreshDependents(changed ...value.Key) {
	var keys []value.Key
	seen := make(map[value.Key]struct{})
	for _, k := range changed {
		for _, d := range c.dependents[k] {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			keys = append(keys, d)
		}
	}
	c.evaluateConditions(keys, true)
}

// evaluateConditions recomputes the visible and enabled flags of keys. When
// notify is set, flips are announced with VisibilityChanged and
// EnabledChanged.
func (c *Context) evaluateConditions(keys []value.Key, notify bool) {
	e := env{c}
	for _, key := range keys {
		p, ok := c.schema.Lookup(key)
		if !ok {
			continue
		}
		st := c.state(key)
		visible := expr.Eval(p.VisibleWhen(), e)
		enabled := expr.Eval(p.EnabledWhen(), e)
		if visible == st.Visible && enabled == st.Enabled {
			continue
		}
		visFlip, enFlip := visible != st.Visible, enabled != st.Enabled
		st.Visible, st.Enabled = visible, enabled
		c.states[key] = st
		if !notify {
			continue
		}
		if visFlip {
			c.bus.Emit(event.Event{Type: event.VisibilityChanged, Key: key, Flag: visible})
		}
		if enFlip {
			c.bus.Emit(event.Event{Type: event.EnabledChanged, Key: key, Flag: enabled})
		}
	}
}

// IsVisible reports the visibility of key. Unknown keys are not visible.
func (c *Context) IsVisible(key value.Key) bool {
	st, ok := c.states[key]
	return ok && st.Visible
}

// IsEnabled reports whether key is enabled. Unknown keys are not enabled.
func (c *Context) IsEnabled(key value.Key) bool {
	st, ok := c.states[key]
	return ok && st.Enabled
}

// Trigger fires an action parameter. It marks the key touched and emits
// ActionTriggered; no value changes and nothing is recorded in history.
func (c *Context) Trigger(ctx context.Context, key value.Key) error {
	p, ok := c.schema.Lookup(key)
	if !ok {
		return domain.NotFound(key)
	}
	if !schema.IsAction(p) {
		return fmt.Errorf("trigger %q: %w", key, domain.ErrNotAction)
	}
	if !c.IsEnabled(key) {
		return fmt.Errorf("trigger %q: %w", key, domain.ErrDisabled)
	}
	c.touch(key)
	c.bus.Emit(event.Event{Type: event.ActionTriggered, Key: key, Time: c.now()})
	c.logger.Debug("action triggered", "key", key)
	return nil
}
