package iterator

import (
	"bytes"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/keyrange"
)

// Bounded walks an Iterator over the keys of a range in one direction.
//
// Forward walks start at the lowest key in range, backward walks at the
// highest. In unique directions only one pair per distinct key is produced:
// the first of the run of equal keys in ascending order, whichever way the
// walk goes.
//
// Usage:
//
//	var walk Bounded[I]
//	walk.Load(iter, rng, kvstream.Prev)
//	for walk.Step() {
//	    key, val := walk.Key(), walk.Val()
//	}
//	if err := walk.Error(); err != nil {
//	    // handle error
//	}
type Bounded[Iter Iterator] struct {
	iter    Iter
	rng     keyrange.Range
	dir     kvstream.Direction
	started bool
	done    bool
}

// Load resets the walk over iter. The iterator's current position is ignored.
func (walk *Bounded[Iter]) Load(iter Iter, rng keyrange.Range, dir kvstream.Direction) {
	walk.iter = iter
	walk.rng = rng
	walk.dir = dir
	walk.started = false
	walk.done = rng.Empty()
}

// Step moves to the next pair of the walk.
// Returns false once the range is exhausted or the iterator failed;
// use Error() to distinguish.
func (walk *Bounded[Iter]) Step() bool {
	if walk.done {
		return false
	}

	var ok bool
	if !walk.started {
		walk.started = true
		if walk.dir.Forward() {
			ok = walk.first()
		} else {
			ok = walk.last()
		}
	} else if walk.dir.Forward() {
		ok = walk.next()
	} else {
		ok = walk.prev()
	}

	if ok && walk.dir == kvstream.PrevUnique {
		ok = walk.iter.Seek(bytes.Clone(walk.iter.Key()))
	}

	if !ok || !walk.rng.Contains(walk.iter.Key()) {
		walk.done = true
		return false
	}
	return true
}

// Key returns the current key.
func (walk *Bounded[Iter]) Key() []byte {
	return walk.iter.Key()
}

// Val returns the current value.
func (walk *Bounded[Iter]) Val() []byte {
	return walk.iter.Val()
}

// Error returns the underlying iterator's error.
func (walk *Bounded[Iter]) Error() error {
	return walk.iter.Error()
}

func (walk *Bounded[Iter]) first() bool {
	lo, ok := walk.rng.Lower().Get()
	if !ok {
		return walk.iter.SeekFirst()
	}
	if !walk.iter.Seek(lo) {
		return false
	}
	if walk.rng.LowerOpen() {
		return walk.skip(lo)
	}
	return true
}

func (walk *Bounded[Iter]) last() bool {
	hi, ok := walk.rng.Upper().Get()
	if !ok {
		return walk.iter.SeekLast()
	}
	if !walk.iter.Seek(hi) {
		if walk.iter.Error() != nil {
			return false
		}
		// every key is below hi
		return walk.iter.SeekLast()
	}
	if walk.rng.UpperOpen() {
		return walk.iter.Prev()
	}
	if !walk.skip(hi) {
		if walk.iter.Error() != nil {
			return false
		}
		return walk.iter.SeekLast()
	}
	return walk.iter.Prev()
}

func (walk *Bounded[Iter]) next() bool {
	if walk.dir.Unique() {
		return walk.skip(bytes.Clone(walk.iter.Key()))
	}
	return walk.iter.Next()
}

// prev relies on PrevUnique walks sitting on the first of each run,
// so a single Prev always leaves the current key.
func (walk *Bounded[Iter]) prev() bool {
	return walk.iter.Prev()
}

// skip moves forward past every pair whose key equals key.
func (walk *Bounded[Iter]) skip(key []byte) bool {
	for walk.iter.Valid() && bytes.Equal(walk.iter.Key(), key) {
		if !walk.iter.Next() {
			return false
		}
	}
	return walk.iter.Valid()
}
