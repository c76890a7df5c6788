package runtime

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/history"
	"github.com/aretw0/tendril/pkg/value"
)

// Undo reverts the most recent history entry. It reports false when there
// is nothing to undo.
func (c *Context) Undo(ctx context.Context) (bool, error) {
	var desc string
	if cmd, ok := c.history.PeekUndo(); ok {
		desc = cmd.Description()
	}
	var done bool
	err := c.withSource(sourceUndo, func() (err error) {
		done, err = c.history.Undo(ctx)
		return err
	})
	if done && c.hooks.OnUndo != nil {
		c.hooks.OnUndo(ctx, &domain.HistoryEvent{Description: desc})
	}
	return done, err
}

// Redo re-applies the most recently undone entry. It reports false when
// there is nothing to redo.
func (c *Context) Redo(ctx context.Context) (bool, error) {
	var desc string
	if cmd, ok := c.history.PeekRedo(); ok {
		desc = cmd.Description()
	}
	var done bool
	err := c.withSource(sourceRedo, func() (err error) {
		done, err = c.history.Redo(ctx)
		return err
	})
	if done && c.hooks.OnRedo != nil {
		c.hooks.OnRedo(ctx, &domain.HistoryEvent{Description: desc})
	}
	return done, err
}

func (c *Context) CanUndo() bool { return c.history.CanUndo() }
func (c *Context) CanRedo() bool { return c.history.CanRedo() }

// Transaction groups the mutations made while it is open into one undo
// entry. Mutations apply immediately. A transaction closed without Commit
// is rolled back:
//
//	tx := c.BeginTransaction(ctx, "Paste")
//	defer tx.Close()
//	if err := c.Set(ctx, "x", v); err != nil {
//		return err
//	}
//	return tx.Commit()
type Transaction struct {
	c   *Context
	ctx context.Context
	tx  *history.Transaction
	// async lists the keys whose SetAsync started inside the transaction;
	// their pending verdicts die with a rollback.
	async []value.Key
}

// BeginTransaction opens a transaction. Transactions nest.
func (c *Context) BeginTransaction(ctx context.Context, label string) *Transaction {
	t := &Transaction{c: c, ctx: ctx, tx: c.history.Begin(ctx, label)}
	c.txs = append(c.txs, t)
	return t
}

func (t *Transaction) Label() string { return t.tx.Label() }

// Commit records the transaction. It fails with domain.ErrTransactionMisuse
// once the transaction is finished. Validations still pending keep running
// and, in a nested transaction, are handed to the parent.
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.c.popTransaction(t)
	if parent := t.c.currentTransaction(); parent != nil {
		parent.async = append(parent.async, t.async...)
	}
	return nil
}

// Rollback undoes every mutation made inside the transaction and discards
// the validations it started.
func (t *Transaction) Rollback() error {
	err := t.c.withSource(sourceRollback, func() error { return t.tx.Rollback(t.ctx) })
	if err != nil && !t.tx.Done() {
		return err
	}
	t.discard()
	return err
}

// Close rolls back unless the transaction was committed or rolled back.
func (t *Transaction) Close() {
	if t.tx.Done() {
		return
	}
	for {
		inner := t.c.currentTransaction()
		if inner == nil || inner == t {
			break
		}
		inner.Close()
	}
	_ = t.c.withSource(sourceRollback, func() error {
		t.tx.Close()
		return nil
	})
	t.discard()
}

func (t *Transaction) discard() {
	t.c.popTransaction(t)
	for _, key := range t.async {
		if _, ok := t.c.async.pending[key]; ok {
			t.c.logger.Debug("pending validation discarded by rollback", "key", key, "transaction", t.Label())
		}
		t.c.async.supersede(key)
	}
	t.async = nil
}

func (c *Context) currentTransaction() *Transaction {
	if len(c.txs) == 0 {
		return nil
	}
	return c.txs[len(c.txs)-1]
}

func (c *Context) popTransaction(t *Transaction) {
	for i := len(c.txs) - 1; i >= 0; i-- {
		if c.txs[i] == t {
			c.txs = append(c.txs[:i], c.txs[i+1:]...)
			return
		}
	}
}

// Transaction runs fn inside a transaction, committing when fn succeeds and
// rolling back when it fails or panics.
func (c *Context) Transaction(ctx context.Context, label string, fn func() error) error {
	tx := c.BeginTransaction(ctx, label)
	defer tx.Close()
	if err := fn(); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Context) rolledBack(label string, err error) {
	if err != nil {
		c.logger.Warn("transaction rollback failed", "transaction", label, "error", err)
	} else {
		c.logger.Debug("transaction rolled back", "transaction", label)
	}
	if c.hooks.OnRollback != nil {
		c.hooks.OnRollback(context.Background(), &domain.HistoryEvent{Description: label})
	}
}
