package kv

import (
	"bytes"
	"sort"

	"github.com/dacapoday/kvstream/iterator"
)

// snapshot is an immutable, sorted view of a collection.
// Equal keys keep insertion order.
type snapshot struct {
	entries []entry
}

type entry struct {
	key, val []byte
}

var empty = &snapshot{}

// search returns the index of the first entry with key >= key.
func (snap *snapshot) search(key []byte) int {
	return sort.Search(len(snap.entries), func(i int) bool {
		return bytes.Compare(snap.entries[i].key, key) >= 0
	})
}

// run returns the half-open index span of entries equal to key.
func (snap *snapshot) run(key []byte) (from, to int) {
	from = snap.search(key)
	to = from
	for to < len(snap.entries) && bytes.Equal(snap.entries[to].key, key) {
		to++
	}
	return
}

// with returns a copy of snap with entries[from:to] replaced by repl.
func (snap *snapshot) with(from, to int, repl ...entry) *snapshot {
	entries := make([]entry, 0, len(snap.entries)-(to-from)+len(repl))
	entries = append(entries, snap.entries[:from]...)
	entries = append(entries, repl...)
	entries = append(entries, snap.entries[to:]...)
	return &snapshot{entries}
}

func (snap *snapshot) iter() *snapshotIter {
	return &snapshotIter{snap: snap, index: -1}
}

var _ iterator.Iterator = (*snapshotIter)(nil)

// snapshotIter positions within [-1, len]; both ends are invalid.
type snapshotIter struct {
	snap  *snapshot
	index int
}

func (it *snapshotIter) Valid() bool {
	return it.index >= 0 && it.index < len(it.snap.entries)
}

func (it *snapshotIter) Error() error {
	return nil
}

func (it *snapshotIter) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.snap.entries[it.index].key
}

func (it *snapshotIter) Val() []byte {
	if !it.Valid() {
		return nil
	}
	return it.snap.entries[it.index].val
}

func (it *snapshotIter) Next() bool {
	if it.index < len(it.snap.entries) {
		it.index++
	}
	return it.Valid()
}

func (it *snapshotIter) Prev() bool {
	if it.index >= 0 {
		it.index--
	}
	return it.Valid()
}

func (it *snapshotIter) SeekFirst() bool {
	it.index = 0
	return it.Valid()
}

func (it *snapshotIter) SeekLast() bool {
	it.index = len(it.snap.entries) - 1
	return it.Valid()
}

func (it *snapshotIter) Seek(key []byte) bool {
	it.index = it.snap.search(key)
	return it.Valid()
}
