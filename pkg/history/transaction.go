package history

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// Transaction accumulates the commands recorded while it is open into one
// MacroCommand. Commands take effect immediately; Commit makes them a single
// undo entry, and a transaction that ends without Commit undoes them in
// reverse order. Use it with defer:
//
//	tx := h.Begin(ctx, "Paste")
//	defer tx.Close()
//	... mutations ...
//	return tx.Commit()
//
// Transactions nest: a committed inner transaction becomes one step of its
// parent.
type Transaction struct {
	m     *Manager
	ctx   context.Context
	label string
	macro *MacroCommand
	done  bool
}

// Begin opens a transaction. ctx is used if the transaction is rolled back
// by Close.
func (m *Manager) Begin(ctx context.Context, label string) *Transaction {
	tx := &Transaction{
		m:     m,
		ctx:   ctx,
		label: label,
		macro: &MacroCommand{Label: label},
	}
	m.open = append(m.open, tx)
	return tx
}

func (tx *Transaction) Label() string { return tx.label }

// Len is the number of commands recorded so far.
func (tx *Transaction) Len() int { return len(tx.macro.Commands) }

// Done reports whether the transaction was committed or rolled back.
func (tx *Transaction) Done() bool { return tx.done }

// Commit records the accumulated commands as one entry. Committing an
// empty transaction records nothing.
func (tx *Transaction) Commit() error {
	if err := tx.check("commit"); err != nil {
		return err
	}
	tx.finish()
	if tx.macro.IsEmpty() {
		return nil
	}
	if parent := tx.m.current(); parent != nil {
		parent.macro.Add(tx.macro)
		return nil
	}
	tx.m.record(tx.macro, false)
	return nil
}

// Rollback undoes the accumulated commands in reverse order.
func (tx *Transaction) Rollback(ctx context.Context) error {
	if err := tx.check("rollback"); err != nil {
		return err
	}
	tx.finish()
	err := tx.macro.Undo(ctx, tx.m.target)
	if err != nil {
		tx.m.logger.Error("transaction rollback failed", "transaction", tx.label, "error", err)
	} else {
		tx.m.logger.Debug("transaction rolled back", "transaction", tx.label, "commands", tx.Len())
	}
	if tx.m.onRollback != nil {
		tx.m.onRollback(tx.label, err)
	}
	return err
}

// Close rolls back unless the transaction already finished. It is safe to
// call any number of times.
func (tx *Transaction) Close() {
	if tx.done {
		return
	}
	// Inner transactions left open are rolled back first.
	for {
		inner := tx.m.current()
		if inner == nil || inner == tx {
			break
		}
		inner.Close()
	}
	_ = tx.Rollback(tx.ctx)
}

func (tx *Transaction) check(op string) error {
	if tx.done {
		return fmt.Errorf("%s %q: %w", op, tx.label, domain.ErrTransactionMisuse)
	}
	if tx.m.current() != tx {
		return fmt.Errorf("%s %q: inner transaction still open: %w", op, tx.label, domain.ErrTransactionMisuse)
	}
	return nil
}

func (tx *Transaction) finish() {
	tx.done = true
	tx.m.open = tx.m.open[:len(tx.m.open)-1]
}
