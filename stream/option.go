package stream

import (
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/keyrange"
)

// DefaultHighWaterMark is the number of records buffered ahead of the
// consumer when no other value is given.
const DefaultHighWaterMark = 16

type Option interface {
	apply(*options)
}

type OptionFunc func(*options)

func (f OptionFunc) apply(o *options) {
	f(o)
}

type options struct {
	rng             keyrange.Range
	dir             kvstream.Direction
	reopenOnTimeout bool
	highWaterMark   int
	log             logrus.FieldLogger
}

func defaults() options {
	return options{
		dir:             kvstream.Next,
		reopenOnTimeout: true,
		highWaterMark:   DefaultHighWaterMark,
		log:             logrus.StandardLogger(),
	}
}

// WithRange restricts the stream to the keys in r. The default is unbounded.
func WithRange(r keyrange.Range) Option {
	return OptionFunc(func(o *options) {
		o.rng = r
	})
}

// WithDirection sets the iteration order. The default is kvstream.Next.
func WithDirection(dir kvstream.Direction) Option {
	return OptionFunc(func(o *options) {
		o.dir = dir
	})
}

// WithReopenOnTimeout chooses what happens when the cursor's transaction
// becomes inactive before the range is exhausted: open a new cursor where
// the old one stopped (true, the default) or fail the stream (false).
func WithReopenOnTimeout(reopen bool) Option {
	return OptionFunc(func(o *options) {
		o.reopenOnTimeout = reopen
	})
}

// WithHighWaterMark sets how many records may wait in the stream's buffer
// before the cursor stops advancing. Values below 1 mean 1.
func WithHighWaterMark(n int) Option {
	return OptionFunc(func(o *options) {
		o.highWaterMark = max(n, 1)
	})
}

func WithLogger(log logrus.FieldLogger) Option {
	return OptionFunc(func(o *options) {
		o.log = log
	})
}
