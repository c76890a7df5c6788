package history

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
)

// Target is what commands act upon. Writes go straight to the store: the
// values they carry were accepted by the pipeline when first committed.
type Target interface {
	Write(ctx context.Context, key value.Key, v value.Value) error
	Restore(ctx context.Context, s *snapshot.Snapshot) error
}

// Command is a reversible unit of mutation.
type Command interface {
	Execute(ctx context.Context, t Target) error
	Undo(ctx context.Context, t Target) error
	Description() string
}

// Merger is implemented by commands that can absorb a following command,
// e.g. successive edits of the same key while dragging a slider.
type Merger interface {
	// Merge returns the command equivalent to running the receiver then
	// next, or false when they cannot be combined.
	Merge(next Command) (Command, bool)
}

// SetValueCommand changes one key from Old to New.
type SetValueCommand struct {
	Key value.Key
	Old value.Value
	New value.Value
}

func (c *SetValueCommand) Execute(ctx context.Context, t Target) error {
	return t.Write(ctx, c.Key, c.New)
}

func (c *SetValueCommand) Undo(ctx context.Context, t Target) error {
	return t.Write(ctx, c.Key, c.Old)
}

func (c *SetValueCommand) Description() string {
	return fmt.Sprintf("Set %s", c.Key)
}

// Merge combines two sets of the same key, keeping the oldest Old.
func (c *SetValueCommand) Merge(next Command) (Command, bool) {
	n, ok := next.(*SetValueCommand)
	if !ok || n.Key != c.Key {
		return nil, false
	}
	return &SetValueCommand{Key: c.Key, Old: c.Old, New: n.New}, true
}

// ResetCommand restores a key to its default.
type ResetCommand struct {
	Key     value.Key
	Old     value.Value
	Default value.Value
}

func (c *ResetCommand) Execute(ctx context.Context, t Target) error {
	return t.Write(ctx, c.Key, c.Default)
}

func (c *ResetCommand) Undo(ctx context.Context, t Target) error {
	return t.Write(ctx, c.Key, c.Old)
}

func (c *ResetCommand) Description() string {
	return fmt.Sprintf("Reset %s", c.Key)
}

// SnapshotCommand swaps the whole state between two snapshots.
type SnapshotCommand struct {
	Label  string
	Before *snapshot.Snapshot
	After  *snapshot.Snapshot
}

func (c *SnapshotCommand) Execute(ctx context.Context, t Target) error {
	return t.Restore(ctx, c.After)
}

func (c *SnapshotCommand) Undo(ctx context.Context, t Target) error {
	return t.Restore(ctx, c.Before)
}

func (c *SnapshotCommand) Description() string {
	if c.Label != "" {
		return c.Label
	}
	return "Restore snapshot"
}

// MacroCommand groups commands as one undo unit. Children execute in order
// and undo in reverse order.
type MacroCommand struct {
	Label    string
	Commands []Command
}

// Execute runs every child. If one fails, the children already run are
// undone before the error is returned.
func (c *MacroCommand) Execute(ctx context.Context, t Target) error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(ctx, t); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo(ctx, t)
			}
			return fmt.Errorf("macro %q step %d: %w", c.Label, i, err)
		}
	}
	return nil
}

func (c *MacroCommand) Undo(ctx context.Context, t Target) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(ctx, t); err != nil {
			return fmt.Errorf("undo macro %q step %d: %w", c.Label, i, err)
		}
	}
	return nil
}

func (c *MacroCommand) Description() string {
	if c.Label != "" {
		return c.Label
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

func (c *MacroCommand) Add(cmd Command) { c.Commands = append(c.Commands, cmd) }

func (c *MacroCommand) IsEmpty() bool { return len(c.Commands) == 0 }
