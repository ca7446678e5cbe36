// Package kv is an in-memory, multi-collection key-value store that
// satisfies kvstream.Store.
//
// Writes are copy-on-write: every transaction reads the snapshot that was
// current when it began, no matter what is written afterwards.
package kv

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/kvstream"
)

var (
	ErrClosed   = kvstream.ErrClosed
	ErrNotFound = kvstream.ErrNotFound
	ErrExists   = kvstream.ErrExists
)

var _ kvstream.Store = (*DB)(nil)

// DB is safe for concurrent use.
type DB struct {
	rw          sync.RWMutex
	collections map[string]*collection
	live        map[*Tx]struct{}
	closed      bool

	txnTimeout time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

type collection struct {
	name       string
	duplicates bool
	snap       *snapshot
}

func New(opts ...Option) *DB {
	db := &DB{
		collections: make(map[string]*collection),
		live:        make(map[*Tx]struct{}),
		now:         time.Now,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt.apply(db)
	}
	return db
}

// Close aborts every live transaction. Later calls on db return ErrClosed.
func (db *DB) Close() error {
	db.rw.Lock()
	if db.closed {
		db.rw.Unlock()
		return nil
	}
	db.closed = true
	live := db.live
	db.live = nil
	db.rw.Unlock()

	for tx := range live {
		tx.Abort(ErrClosed)
	}
	return nil
}

// CreateCollection adds an empty collection.
func (db *DB) CreateCollection(name string, opts ...CollectionOption) error {
	db.rw.Lock()
	defer db.rw.Unlock()
	if db.closed {
		return ErrClosed
	}
	if _, ok := db.collections[name]; ok {
		return errors.Wrapf(ErrExists, "collection %q", name)
	}
	c := &collection{name: name, snap: empty}
	for _, opt := range opts {
		opt.apply(c)
	}
	db.collections[name] = c
	return nil
}

// Collections returns the collection names in sorted order.
func (db *DB) Collections() []string {
	db.rw.RLock()
	defer db.rw.RUnlock()
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of records in a collection.
func (db *DB) Len(name string) (n int, err error) {
	db.rw.RLock()
	defer db.rw.RUnlock()
	c, err := db.collection(name)
	if err != nil {
		return
	}
	n = len(c.snap.entries)
	return
}

// Get returns the first value stored under key, or nil if there is none.
func (db *DB) Get(name string, key []byte) (val []byte, err error) {
	db.rw.RLock()
	defer db.rw.RUnlock()
	c, err := db.collection(name)
	if err != nil {
		return
	}
	if from, to := c.snap.run(key); from < to {
		val = c.snap.entries[from].val
	}
	return
}

// Put replaces every value stored under key with val.
// A nil val deletes the key.
func (db *DB) Put(name string, key, val []byte) error {
	return db.write(name, func(c *collection) {
		c.put(key, val)
	})
}

// Add appends val under key. In a collection without duplicates
// it behaves like Put.
func (db *DB) Add(name string, key, val []byte) error {
	return db.write(name, func(c *collection) {
		if !c.duplicates || val == nil {
			c.put(key, val)
			return
		}
		_, to := c.snap.run(key)
		c.snap = c.snap.with(to, to, entry{bytes.Clone(key), bytes.Clone(val)})
	})
}

// Delete removes every value stored under key.
func (db *DB) Delete(name string, key []byte) error {
	return db.Put(name, key, nil)
}

// Batch applies changes atomically: readers see all of them or none.
// A nil value deletes its key.
func (db *DB) Batch(name string, changes func(yield func([]byte, []byte) bool)) error {
	return db.write(name, func(c *collection) {
		for key, val := range changes {
			c.put(key, val)
		}
	})
}

func (c *collection) put(key, val []byte) {
	from, to := c.snap.run(key)
	if val == nil {
		if from < to {
			c.snap = c.snap.with(from, to)
		}
		return
	}
	c.snap = c.snap.with(from, to, entry{bytes.Clone(key), bytes.Clone(val)})
}

func (db *DB) write(name string, fn func(*collection)) error {
	db.rw.Lock()
	defer db.rw.Unlock()
	c, err := db.collection(name)
	if err != nil {
		return err
	}
	fn(c)
	return nil
}

// collection requires db.rw to be held.
func (db *DB) collection(name string) (*collection, error) {
	if db.closed {
		return nil, ErrClosed
	}
	c, ok := db.collections[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "collection %q", name)
	}
	return c, nil
}

// Begin starts a read-only transaction over the current snapshot of a
// collection.
func (db *DB) Begin(ctx context.Context, name string) (kvstream.Txn, error) {
	tx, err := db.BeginTx(ctx, name)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx is Begin returning the concrete transaction.
func (db *DB) BeginTx(ctx context.Context, name string) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.rw.Lock()
	defer db.rw.Unlock()
	c, err := db.collection(name)
	if err != nil {
		return nil, err
	}
	tx := &Tx{
		db:   db,
		name: name,
		snap: c.snap,
		done: make(chan struct{}),
	}
	tx.touch()
	db.live[tx] = struct{}{}
	return tx, nil
}

func (db *DB) release(tx *Tx) {
	db.rw.Lock()
	delete(db.live, tx)
	db.rw.Unlock()
}
