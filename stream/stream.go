// Package stream reads a collection of a kvstream.Store as a sequential
// stream of records.
//
// A Stream walks one cursor at a time and only advances it while its buffer
// has room, so a slow consumer holds the cursor still instead of piling up
// records. When the cursor's transaction becomes inactive mid-walk (a
// "timeout"), the stream opens a new transaction and cursor just past the
// last record it emitted, so no key is skipped or repeated. The new cursor
// sees whatever the store holds at that moment.
//
// Usage:
//
//	s, err := stream.New(db, "items", stream.WithDirection(kvstream.Prev))
//	if err != nil {
//	    // handle error
//	}
//	defer s.Close()
//	for s.Next(ctx) {
//	    key, val := s.Key(), s.Val()
//	    // process key, val
//	}
//	if err := s.Err(); err != nil {
//	    // handle error
//	}
package stream

import (
	"bytes"
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/keyrange"
)

var (
	ErrInvalidArgument     = kvstream.ErrInvalidArgument
	ErrTransactionInactive = kvstream.ErrTransactionInactive
)

// Stream is a pull-based stream over one collection.
//
// Next, Record, Key, Val and Err are meant for a single consumer goroutine.
// Close, Done, State and Generation may be called from anywhere.
type Stream struct {
	store      kvstream.Store
	collection string
	opts       options
	log        logrus.FieldLogger

	records chan kvstream.Record
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	start   sync.Once
	closing atomic.Bool

	// written only by the pump goroutine
	position   mo.Option[[]byte]
	generation atomic.Uint64
	state      atomic.Uint32

	mu      sync.Mutex
	err     error
	readErr error

	cur kvstream.Record
}

// New returns a stream over collection. Nothing is read from store until
// the first call to Next.
//
// It fails with ErrInvalidArgument if store is nil or collection is not a
// plain name: empty, invalid UTF-8, or containing spaces or control
// characters.
func New(store kvstream.Store, collection string, opts ...Option) (*Stream, error) {
	if store == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil store")
	}
	if err := checkName(collection); err != nil {
		return nil, err
	}

	o := defaults()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if !o.dir.Valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "direction %d", uint8(o.dir))
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}

	s := &Stream{
		store:      store,
		collection: collection,
		opts:       o,
		records:    make(chan kvstream.Record, o.highWaterMark-1),
		done:       make(chan struct{}),
	}
	s.log = o.log.WithField("collection", collection)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

func checkName(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidArgument, "empty collection name")
	}
	if !utf8.ValidString(name) {
		return errors.Wrapf(ErrInvalidArgument, "collection name %q is not UTF-8", name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return errors.Wrapf(ErrInvalidArgument, "collection name %q", name)
		}
	}
	return nil
}

// Next waits for the next record and reports whether there is one.
// It returns false at the end of the stream, on failure, or when ctx is
// done; Err tells these apart. The first call starts reading.
func (s *Stream) Next(ctx context.Context) bool {
	s.start.Do(s.run)
	s.mu.Lock()
	s.readErr = nil
	s.mu.Unlock()
	select {
	case rec, ok := <-s.records:
		if !ok {
			s.cur = kvstream.Record{}
			return false
		}
		s.cur = rec
		return true
	case <-ctx.Done():
		s.cur = kvstream.Record{}
		s.mu.Lock()
		s.readErr = ctx.Err()
		s.mu.Unlock()
		return false
	}
}

// Record returns the record read by the last successful Next.
func (s *Stream) Record() kvstream.Record {
	return s.cur
}

// Key returns the key of the current record.
func (s *Stream) Key() []byte {
	return s.cur.Key
}

// Val returns the value of the current record.
func (s *Stream) Val() []byte {
	return s.cur.Val
}

// Err returns the error that stopped the stream, or the context error that
// interrupted the last Next. It is nil after a clean end or Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return s.readErr
	}
	return s.err
}

// All returns an iterator over the remaining records.
// The iteration stops early when ctx is done; check Err afterwards.
func (s *Stream) All(ctx context.Context) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		for s.Next(ctx) {
			if !yield(s.cur.Key, s.cur.Val) {
				return
			}
		}
	}
}

// Done is closed once the stream has stopped reading from the store,
// after its last record has been buffered.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Generation returns how many cursors the stream has opened so far.
func (s *Stream) Generation() uint64 {
	return s.generation.Load()
}

// State returns the stream's current state.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// Close stops the stream and releases its transaction, if any.
// Buffered records are discarded and Next returns false afterwards.
// Close waits for the stream to stop and may be called more than once.
func (s *Stream) Close() error {
	s.closing.Store(true)
	s.cancel()
	s.start.Do(func() {
		s.state.Store(uint32(Closed))
		close(s.records)
		close(s.done)
	})
	<-s.done
	for range s.records {
	}
	return nil
}

func (s *Stream) run() {
	go s.pump()
}

// pump is the only goroutine touching the cursor and the position.
func (s *Stream) pump() {
	err := s.loop(s.ctx)

	switch {
	case s.closing.Load():
		s.setState(Closed)
	case err != nil:
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.setState(Errored)
		s.log.WithError(err).WithField("generation", s.Generation()).Warn("stream failed")
	default:
		s.setState(Ended)
		s.log.WithField("generation", s.Generation()).Debug("stream ended")
	}

	close(s.records)
	close(s.done)
}

// loop opens cursor generations until the range is exhausted or a
// generation fails for a reason other than a recoverable timeout.
func (s *Stream) loop(ctx context.Context) error {
	for {
		err := s.walk(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kvstream.ErrTransactionInactive) || !s.opts.reopenOnTimeout || ctx.Err() != nil {
			return err
		}
		pos, _ := s.position.Get()
		s.log.WithFields(logrus.Fields{
			"generation": s.Generation(),
			"position":   string(pos),
		}).Debug("transaction inactive, reopening cursor")
	}
}

// effectiveRange narrows the configured range past the last emitted key.
func (s *Stream) effectiveRange() keyrange.Range {
	pos, ok := s.position.Get()
	if !ok {
		return s.opts.rng
	}
	if s.opts.dir.Forward() {
		return s.opts.rng.After(pos)
	}
	return s.opts.rng.Before(pos)
}

// walk runs one cursor generation. It returns nil once the range is
// exhausted.
func (s *Stream) walk(ctx context.Context) (err error) {
	s.setState(Opening)
	rng := s.effectiveRange()
	if rng.Empty() {
		return nil
	}

	txn, err := s.store.Begin(ctx, s.collection)
	if err != nil {
		return errors.Wrapf(err, "begin %q", s.collection)
	}
	defer func() {
		if cerr := txn.Close(); cerr != nil {
			err = multierror.Append(err, errors.Wrap(cerr, "close transaction")).ErrorOrNil()
		}
	}()

	cur, err := txn.Cursor(ctx, rng, s.opts.dir)
	if err != nil {
		return errors.Wrapf(err, "open cursor on %s", rng)
	}
	gen := s.generation.Add(1)
	s.log.WithFields(logrus.Fields{
		"generation": gen,
		"range":      rng.String(),
		"direction":  s.opts.dir.String(),
	}).Debug("cursor opened")

	for {
		select {
		case <-txn.Done():
			return failure(txn)
		default:
		}

		s.setState(Advancing)
		rec, ok, err := cur.Advance(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		s.position = mo.Some(bytes.Clone(rec.Key))

		s.setState(Emitting)
		select {
		case s.records <- rec:
			continue
		default:
		}

		s.setState(Draining)
		select {
		case s.records <- rec:
		case <-txn.Done():
			return failure(txn)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func failure(txn kvstream.Txn) error {
	if err := txn.Err(); err != nil {
		return err
	}
	return kvstream.ErrTransactionAborted
}

func (s *Stream) setState(state State) {
	s.state.Store(uint32(state))
}
