package kv

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Option interface {
	apply(*DB)
}

type OptionFunc func(*DB)

func (f OptionFunc) apply(db *DB) {
	f(db)
}

// WithTxnTimeout sets how long a transaction may sit idle between requests
// before it becomes inactive. Zero, the default, disables the timeout.
func WithTxnTimeout(d time.Duration) Option {
	return OptionFunc(func(db *DB) {
		db.txnTimeout = d
	})
}

// WithClock replaces time.Now for transaction deadlines.
func WithClock(now func() time.Time) Option {
	return OptionFunc(func(db *DB) {
		db.now = now
	})
}

func WithLogger(log logrus.FieldLogger) Option {
	return OptionFunc(func(db *DB) {
		db.log = log
	})
}

type CollectionOption interface {
	apply(*collection)
}

type collectionOptionFunc func(*collection)

func (f collectionOptionFunc) apply(c *collection) {
	f(c)
}

// AllowDuplicates lets the collection hold several values under one key,
// like an index. Add then appends instead of replacing.
func AllowDuplicates() CollectionOption {
	return collectionOptionFunc(func(c *collection) {
		c.duplicates = true
	})
}
