// Package iterator walks sorted key-value data.
package iterator

// Iterator represents a cursor over a sorted key-value dataset.
// The iterator holds a current position and moves forward or backward
// through the dataset in key order; equal keys may repeat.
//
// Usage:
//
//	for iter.SeekFirst(); iter.Valid(); iter.Next() {
//	    key, val := iter.Key(), iter.Val()
//	    // process key, val
//	}
//	if err := iter.Error(); err != nil {
//	    // handle error
//	}
type Iterator interface {
	// Valid returns true if positioned at a key-value pair.
	// Returns false when not positioned; check Error() to distinguish the cause.
	Valid() bool

	// Error returns any error that occurred during operations.
	// Returns nil when not positioned due to normal conditions (initial state,
	// boundary reached, empty dataset).
	Error() error

	// Key returns the key at the current position.
	// Behavior is undefined if Valid() returns false.
	Key() []byte

	// Val returns the value at the current position.
	// Behavior is undefined if Valid() returns false.
	Val() []byte

	// Next moves to the next pair in ascending order.
	// Returns false at the end of the dataset or on error.
	Next() bool

	// Prev moves to the previous pair in ascending order.
	// Returns false at the start of the dataset or on error.
	Prev() bool

	// SeekFirst positions at the first (smallest) key.
	SeekFirst() bool

	// SeekLast positions at the last (largest) key.
	SeekLast() bool

	// Seek positions at the first pair whose key is greater than or equal
	// to key. Among equal keys that is the first one in ascending order.
	Seek(key []byte) bool
}
