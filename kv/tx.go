package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/iterator"
	"github.com/dacapoday/kvstream/keyrange"
)

var _ kvstream.Txn = (*Tx)(nil)

// Tx is a read-only transaction over one collection snapshot.
//
// A Tx is active until it is closed, expired or aborted. With a transaction
// timeout configured it also expires once it sits idle longer than the
// timeout; every cursor request resets that deadline.
type Tx struct {
	db   *DB
	name string
	snap *snapshot

	mu       sync.Mutex
	state    txState
	deadline time.Time
	done     chan struct{}
	err      error
}

type txState uint8

const (
	txActive txState = iota
	txFinished
	txAborted
)

// Cursor opens a cursor over r in direction dir.
func (tx *Tx) Cursor(ctx context.Context, r keyrange.Range, dir kvstream.Direction) (kvstream.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !dir.Valid() {
		return nil, errors.Wrapf(kvstream.ErrInvalidArgument, "direction %d", uint8(dir))
	}
	if err := tx.request(); err != nil {
		return nil, err
	}
	c := &cursor{tx: tx}
	c.walk.Load(tx.snap.iter(), r, dir)
	return c, nil
}

func (tx *Tx) Done() <-chan struct{} {
	return tx.done
}

func (tx *Tx) Err() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.err
}

// Close finishes the transaction. Closing an ended transaction is a no-op.
func (tx *Tx) Close() error {
	tx.finish()
	return nil
}

// Expire ends the transaction as if its idle timeout had passed.
// Later cursor requests fail with ErrTransactionInactive; Done stays open.
func (tx *Tx) Expire() {
	if tx.finish() {
		tx.logger().Debug("transaction expired")
	}
}

// Abort ends the transaction with reason and closes Done.
// Err then wraps both ErrTransactionAborted and reason.
// Aborting an ended transaction is a no-op.
func (tx *Tx) Abort(reason error) {
	tx.mu.Lock()
	if tx.state != txActive {
		tx.mu.Unlock()
		return
	}
	tx.state = txAborted
	if reason == nil {
		tx.err = kvstream.ErrTransactionAborted
	} else {
		tx.err = fmt.Errorf("%w: %w", kvstream.ErrTransactionAborted, reason)
	}
	close(tx.done)
	tx.mu.Unlock()

	tx.db.release(tx)
	tx.logger().WithError(reason).Debug("transaction aborted")
}

// Fail ends the transaction with a failure, such as a storage error,
// and closes Done. Err then wraps both ErrTransactionFailed and reason.
func (tx *Tx) Fail(reason error) {
	tx.mu.Lock()
	if tx.state != txActive {
		tx.mu.Unlock()
		return
	}
	tx.state = txAborted
	if reason == nil {
		tx.err = kvstream.ErrTransactionFailed
	} else {
		tx.err = fmt.Errorf("%w: %w", kvstream.ErrTransactionFailed, reason)
	}
	close(tx.done)
	tx.mu.Unlock()

	tx.db.release(tx)
	tx.logger().WithError(reason).Debug("transaction failed")
}

// Active reports whether cursor requests would currently succeed.
func (tx *Tx) Active() bool {
	return tx.request() == nil
}

// request checks that tx is still active and renews its idle deadline.
func (tx *Tx) request() error {
	tx.mu.Lock()
	if tx.state == txActive && tx.expired() {
		tx.state = txFinished
		tx.mu.Unlock()
		tx.db.release(tx)
		tx.logger().Debug("transaction timed out")
		return errors.Wrapf(kvstream.ErrTransactionInactive, "collection %q", tx.name)
	}
	defer tx.mu.Unlock()
	switch tx.state {
	case txFinished:
		return errors.Wrapf(kvstream.ErrTransactionInactive, "collection %q", tx.name)
	case txAborted:
		return tx.err
	}
	tx.touchLocked()
	return nil
}

func (tx *Tx) touch() {
	tx.mu.Lock()
	tx.touchLocked()
	tx.mu.Unlock()
}

func (tx *Tx) touchLocked() {
	if tx.db.txnTimeout > 0 {
		tx.deadline = tx.db.now().Add(tx.db.txnTimeout)
	}
}

func (tx *Tx) expired() bool {
	return tx.db.txnTimeout > 0 && !tx.db.now().Before(tx.deadline)
}

// finish reports whether it ended an active transaction.
func (tx *Tx) finish() bool {
	tx.mu.Lock()
	if tx.state != txActive {
		tx.mu.Unlock()
		return false
	}
	tx.state = txFinished
	tx.mu.Unlock()
	tx.db.release(tx)
	return true
}

func (tx *Tx) logger() logrus.FieldLogger {
	return tx.db.log.WithField("collection", tx.name)
}

type cursor struct {
	tx   *Tx
	walk iterator.Bounded[*snapshotIter]
}

func (c *cursor) Advance(ctx context.Context) (rec kvstream.Record, ok bool, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if err = c.tx.request(); err != nil {
		return
	}
	if !c.walk.Step() {
		err = c.walk.Error()
		return
	}
	rec = kvstream.Record{Key: c.walk.Key(), Val: c.walk.Val()}
	ok = true
	return
}
