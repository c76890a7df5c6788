package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
)

// DefaultMaxEntries bounds the undo stack when no limit is configured.
const DefaultMaxEntries = 100

type entry struct {
	cmd Command
	at  time.Time
	// cascade holds the commands recorded by event callbacks while cmd was
	// last replayed. The next replay in the opposite direction reverts it
	// first.
	cascade *MacroCommand
}

// Manager keeps the undo and redo stacks of one target. It is owned by the
// same goroutine as its target and performs no locking.
type Manager struct {
	target Target
	undo   []entry
	redo   []entry
	open   []*Transaction
	replay *MacroCommand

	maxEntries   int
	mergeTimeout time.Duration
	lastCommand  time.Time
	now          func() time.Time
	onRollback   func(label string, err error)
	logger       *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxEntries bounds the undo stack; the oldest entries are evicted.
func WithMaxEntries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithMergeTimeout sets the window within which a command may merge into
// the previous one. Zero disables merging.
func WithMergeTimeout(d time.Duration) Option {
	return func(m *Manager) { m.mergeTimeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRollbackHook is called after every automatic or explicit rollback.
func WithRollbackHook(fn func(label string, err error)) Option {
	return func(m *Manager) { m.onRollback = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a history bound to target.
func NewManager(target Target, opts ...Option) *Manager {
	m := &Manager{
		target:     target,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs cmd against the target and records it.
func (m *Manager) Execute(ctx context.Context, cmd Command) error {
	if err := cmd.Execute(ctx, m.target); err != nil {
		return err
	}
	m.Record(cmd)
	return nil
}

// Record adds an already executed command. Inside a transaction it joins
// the transaction. During Undo or Redo it is folded into the entry being
// replayed. Otherwise it is pushed, merging with the top entry when both are
// within the merge window, and the redo stack is cleared.
func (m *Manager) Record(cmd Command) {
	if tx := m.current(); tx != nil {
		tx.macro.Add(cmd)
		return
	}
	m.record(cmd, true)
}

func (m *Manager) record(cmd Command, mergeable bool) {
	if m.replay != nil {
		m.replay.Add(cmd)
		return
	}
	m.push(cmd, mergeable)
}

func (m *Manager) push(cmd Command, mergeable bool) {
	now := m.now()
	defer func() { m.lastCommand = now }()
	m.redo = nil

	if mergeable && m.mergeTimeout > 0 && len(m.undo) > 0 && !m.lastCommand.IsZero() &&
		now.Sub(m.lastCommand) <= m.mergeTimeout {
		top := &m.undo[len(m.undo)-1]
		if merger, ok := top.cmd.(Merger); ok {
			if merged, ok := merger.Merge(cmd); ok {
				m.logger.Debug("merged command", "command", merged.Description())
				top.cmd = merged
				top.at = now
				return
			}
		}
	}

	m.undo = append(m.undo, entry{cmd: cmd, at: now})
	if excess := len(m.undo) - m.maxEntries; excess > 0 {
		m.undo = m.undo[excess:]
	}
}

// Undo reverts the most recent entry. It reports false when there is
// nothing to undo. On failure the entry stays on the undo stack.
func (m *Manager) Undo(ctx context.Context) (bool, error) {
	if err := m.checkReplay("undo"); err != nil {
		return false, err
	}
	if len(m.undo) == 0 {
		return false, nil
	}
	e := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	cascade, err := m.replayEntry(ctx, e, e.cmd.Undo)
	if err != nil {
		m.undo = append(m.undo, e)
		return false, fmt.Errorf("undo %s: %w", e.cmd.Description(), err)
	}
	e.cascade = cascade
	m.redo = append(m.redo, e)
	m.lastCommand = time.Time{}
	return true, nil
}

// Redo re-applies the most recently undone entry. It reports false when
// there is nothing to redo.
func (m *Manager) Redo(ctx context.Context) (bool, error) {
	if err := m.checkReplay("redo"); err != nil {
		return false, err
	}
	if len(m.redo) == 0 {
		return false, nil
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	cascade, err := m.replayEntry(ctx, e, e.cmd.Execute)
	if err != nil {
		m.redo = append(m.redo, e)
		return false, fmt.Errorf("redo %s: %w", e.cmd.Description(), err)
	}
	e.cascade = cascade
	m.undo = append(m.undo, e)
	m.lastCommand = time.Time{}
	return true, nil
}

func (m *Manager) checkReplay(op string) error {
	if len(m.open) > 0 {
		return fmt.Errorf("%s inside transaction %q: %w", op, m.current().label, domain.ErrTransactionMisuse)
	}
	if m.replay != nil {
		return fmt.Errorf("%s during undo or redo: %w", op, domain.ErrTransactionMisuse)
	}
	return nil
}

// replayEntry reverts the cascade of e, then runs step, capturing every
// command recorded meanwhile. On failure the captured commands are undone
// and nil is returned with the error.
func (m *Manager) replayEntry(ctx context.Context, e entry, step func(context.Context, Target) error) (*MacroCommand, error) {
	m.replay = &MacroCommand{Label: e.cmd.Description()}
	defer func() { m.replay = nil }()

	if e.cascade != nil {
		if err := e.cascade.Undo(ctx, m.target); err != nil {
			return nil, m.abortReplay(ctx, err)
		}
	}
	if err := step(ctx, m.target); err != nil {
		return nil, m.abortReplay(ctx, err)
	}
	if m.replay.IsEmpty() {
		return nil, nil
	}
	m.logger.Debug("folded cascading edits", "command", e.cmd.Description(), "edits", len(m.replay.Commands))
	return m.replay, nil
}

func (m *Manager) abortReplay(ctx context.Context, err error) error {
	captured := m.replay
	m.replay = &MacroCommand{}
	if uerr := captured.Undo(ctx, m.target); uerr != nil {
		m.logger.Error("reverting cascading edits failed", "error", uerr)
	}
	return err
}

func (m *Manager) CanUndo() bool  { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool  { return len(m.redo) > 0 }
func (m *Manager) UndoCount() int { return len(m.undo) }
func (m *Manager) RedoCount() int { return len(m.redo) }

// PeekUndo returns the command Undo would revert.
func (m *Manager) PeekUndo() (Command, bool) {
	if len(m.undo) == 0 {
		return nil, false
	}
	return m.undo[len(m.undo)-1].cmd, true
}

// PeekRedo returns the command Redo would re-apply.
func (m *Manager) PeekRedo() (Command, bool) {
	if len(m.redo) == 0 {
		return nil, false
	}
	return m.redo[len(m.redo)-1].cmd, true
}

// Descriptions lists the undo stack, most recent first.
func (m *Manager) Descriptions() []string {
	out := make([]string, 0, len(m.undo))
	for i := len(m.undo) - 1; i >= 0; i-- {
		out = append(out, m.undo[i].cmd.Description())
	}
	return out
}

// Clear drops both stacks. Open transactions are unaffected.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
	m.lastCommand = time.Time{}
}

// Replaying reports whether an Undo or Redo is running.
func (m *Manager) Replaying() bool { return m.replay != nil }

// InTransaction reports whether a transaction is open.
func (m *Manager) InTransaction() bool { return len(m.open) > 0 }

func (m *Manager) current() *Transaction {
	if len(m.open) == 0 {
		return nil
	}
	return m.open[len(m.open)-1]
}
