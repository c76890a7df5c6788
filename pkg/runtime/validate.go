package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// CrossValidator checks constraints spanning several parameters. values is
// a copy of every committed value. Each returned error names the key it is
// reported against.
type CrossValidator func(ctx context.Context, values value.Map) []schema.FieldError

func hasAsync(p schema.Parameter) bool {
	if a, ok := p.(interface{ HasAsync() bool }); ok {
		return a.HasAsync()
	}
	return true
}

func (c *Context) validateAsync(ctx context.Context, p schema.Parameter, v value.Value) []schema.FieldError {
	if !hasAsync(p) {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "tendril.validate_async",
		trace.WithAttributes(attribute.String("tendril.key", string(p.Key()))))
	defer span.End()

	errs := p.ValidateAsync(ctx, v)
	span.SetAttributes(attribute.Int("tendril.errors", len(errs)))
	if len(errs) > 0 {
		span.SetStatus(codes.Error, "validation failed")
	}
	return errs
}

// ValidateAll validates every committed value: synchronous validators,
// then asynchronous validators (concurrently across keys), then the cross
// validators. Each key's state is updated and ValidationPassed or
// ValidationFailed is emitted for it.
//
// The error is a *domain.AggregateError with one *domain.ValidationFailure
// per invalid key, or nil.
func (c *Context) ValidateAll(ctx context.Context) error {
	params := c.schema.Parameters()
	index := make(map[value.Key]int, len(params))
	found := make([][]schema.FieldError, len(params))
	for i, p := range params {
		index[p.Key()] = i
		c.bus.Emit(event.Event{Type: event.ValidationStarted, Key: p.Key(), New: c.values[p.Key()]})
		found[i] = p.ValidateSync(c.values[p.Key()])
	}

	async := make([][]schema.FieldError, len(params))
	var g errgroup.Group
	for i, p := range params {
		if !hasAsync(p) {
			continue
		}
		v := c.values[p.Key()]
		g.Go(func() error {
			async[i] = c.validateAsync(ctx, p, v)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("validate all: %w", err)
	}
	for i := range params {
		found[i] = append(found[i], async[i]...)
	}

	for _, cross := range c.cross {
		for _, fe := range cross(ctx, c.values.Clone()) {
			i, ok := index[fe.Key]
			if !ok {
				c.logger.Warn("cross validator reported an unknown key", "key", fe.Key)
				continue
			}
			found[i] = append(found[i], fe)
		}
	}

	var failures []error
	var flipped []value.Key
	now := c.now()
	for i, p := range params {
		key := p.Key()
		errs := found[i]
		st := c.state(key)
		if st.Valid != (len(errs) == 0) {
			flipped = append(flipped, key)
		}
		st.Valid = len(errs) == 0
		st.Validated = true
		st.Errors = errs
		st.LastValidated = now
		c.states[key] = st

		if len(errs) == 0 {
			c.bus.Emit(event.Event{Type: event.ValidationPassed, Key: key, New: c.values[key]})
			continue
		}
		c.bus.Emit(event.Event{Type: event.ValidationFailed, Key: key, Errors: errs})
		if c.hooks.OnValidationFailed != nil {
			c.hooks.OnValidationFailed(ctx, &domain.ValidationEvent{Key: key, Errors: errs, Duration: c.now().Sub(now)})
		}
		failures = append(failures, &domain.ValidationFailure{Key: key, Errors: errs})
	}
	c.refreshDependents(flipped...)

	if len(failures) > 0 {
		return &domain.AggregateError{Errors: failures}
	}
	return nil
}
