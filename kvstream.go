// Package kvstream turns cursor iteration over an ordered key-value store
// into a sequential stream of records.
//
// The package defines the collaborators a store must provide. The stream
// adapter lives in package stream; package kv is an in-memory store that
// satisfies these interfaces.
package kvstream

import (
	"context"

	"github.com/dacapoday/kvstream/keyrange"
)

// Store opens read-only transactions scoped to a named collection.
type Store interface {
	// Begin starts a read-only transaction over collection.
	// It returns an error wrapping ErrNotFound if the collection does not exist.
	Begin(ctx context.Context, collection string) (Txn, error)
}

// Txn is a read-only transaction over one snapshot of a collection.
//
// A transaction ends in one of two ways. It may become inactive, for example
// after sitting idle too long; this is not signalled, and the next cursor
// request fails with ErrTransactionInactive. Or it may abort or fail on its
// own; Done is then closed and Err reports the reason.
type Txn interface {
	// Cursor opens a cursor over the keys in r, visited in direction dir.
	Cursor(ctx context.Context, r keyrange.Range, dir Direction) (Cursor, error)

	// Done is closed when the transaction aborts or fails.
	// It is not closed when the transaction merely becomes inactive.
	Done() <-chan struct{}

	// Err returns the abort or failure reason after Done is closed,
	// wrapping ErrTransactionAborted or ErrTransactionFailed.
	Err() error

	// Close ends the transaction and releases its snapshot.
	// Closing an ended transaction is a no-op.
	Close() error
}

// Cursor walks the records of a transaction one at a time.
type Cursor interface {
	// Advance moves to the next record and returns it.
	// It returns ok == false and a nil error once the range is exhausted,
	// and an error wrapping ErrTransactionInactive if the transaction
	// has already ended.
	//
	// The returned slices must stay valid after later calls.
	Advance(ctx context.Context) (rec Record, ok bool, err error)
}

// Record is one key-value pair emitted by a cursor.
type Record struct {
	Key []byte
	Val []byte
}
