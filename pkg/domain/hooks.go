package domain

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// CommitEvent describes a committed mutation.
type CommitEvent struct {
	Key      value.Key
	Old      value.Value
	New      value.Value
	Duration time.Duration
	// Source is "set", "reset", "undo", "redo", "restore" or "rollback".
	Source string
}

// ValidationEvent describes a rejected mutation.
type ValidationEvent struct {
	Key      value.Key
	Errors   []schema.FieldError
	Duration time.Duration
}

// HistoryEvent describes an undo or redo.
type HistoryEvent struct {
	Description string
}

// LifecycleHooks defines callbacks for runtime observability. Nil fields are
// skipped. Hooks run synchronously on the owner's goroutine.
type LifecycleHooks struct {
	OnCommit           func(context.Context, *CommitEvent)
	OnValidationFailed func(context.Context, *ValidationEvent)
	OnUndo             func(context.Context, *HistoryEvent)
	OnRedo             func(context.Context, *HistoryEvent)
	OnRollback         func(context.Context, *HistoryEvent)
}

// Merge combines hooks so that both h and other are invoked, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCommit:           chain(h.OnCommit, other.OnCommit),
		OnValidationFailed: chain(h.OnValidationFailed, other.OnValidationFailed),
		OnUndo:             chain(h.OnUndo, other.OnUndo),
		OnRedo:             chain(h.OnRedo, other.OnRedo),
		OnRollback:         chain(h.OnRollback, other.OnRollback),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
