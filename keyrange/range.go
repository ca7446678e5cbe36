// Package keyrange describes the span of keys a cursor visits.
//
// A Range has an optional lower and an optional upper bound, each of which is
// either closed (the bound key itself is included) or open (excluded).
// The zero Range is unbounded and contains every key.
// Keys are ordered by bytes.Compare.
package keyrange

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/mo"
)

var ErrInvalidRange = errors.New("invalid key range")

// Range is immutable; narrowing returns a new value.
type Range struct {
	lower     mo.Option[[]byte]
	upper     mo.Option[[]byte]
	lowerOpen bool
	upperOpen bool
}

// New normalizes a pair of optional bounds into a Range.
// Open flags given for absent bounds are dropped.
// Bound slices are cloned, so the caller may reuse them.
//
// It returns ErrInvalidRange if lower sorts after upper, or if both bounds
// are the same key and either of them is open.
func New(lower, upper mo.Option[[]byte], lowerOpen, upperOpen bool) (r Range, err error) {
	lo, hasLower := lower.Get()
	hi, hasUpper := upper.Get()
	if hasLower && hasUpper {
		switch c := bytes.Compare(lo, hi); {
		case c > 0:
			err = errors.Wrapf(ErrInvalidRange, "lower %q above upper %q", lo, hi)
			return
		case c == 0 && (lowerOpen || upperOpen):
			err = errors.Wrapf(ErrInvalidRange, "open bound on single key %q", lo)
			return
		}
	}
	if hasLower {
		r.lower = mo.Some(bytes.Clone(lo))
		r.lowerOpen = lowerOpen
	}
	if hasUpper {
		r.upper = mo.Some(bytes.Clone(hi))
		r.upperOpen = upperOpen
	}
	return
}

// Bound returns the range between lower and upper.
func Bound(lower, upper []byte, lowerOpen, upperOpen bool) (Range, error) {
	return New(mo.Some(lower), mo.Some(upper), lowerOpen, upperOpen)
}

// Only returns the range holding exactly key.
func Only(key []byte) Range {
	r, _ := New(mo.Some(key), mo.Some(key), false, false)
	return r
}

// LowerBound returns the range of keys above key (or at key, unless open).
func LowerBound(key []byte, open bool) Range {
	r, _ := New(mo.Some(key), mo.None[[]byte](), open, false)
	return r
}

// UpperBound returns the range of keys below key (or at key, unless open).
func UpperBound(key []byte, open bool) Range {
	r, _ := New(mo.None[[]byte](), mo.Some(key), false, open)
	return r
}

func (r Range) Lower() mo.Option[[]byte] { return r.lower }
func (r Range) Upper() mo.Option[[]byte] { return r.upper }
func (r Range) LowerOpen() bool          { return r.lowerOpen }
func (r Range) UpperOpen() bool          { return r.upperOpen }

// Unbounded reports whether r has neither bound.
func (r Range) Unbounded() bool {
	return r.lower.IsAbsent() && r.upper.IsAbsent()
}

// AboveLower reports whether key satisfies the lower bound.
func (r Range) AboveLower(key []byte) bool {
	lo, ok := r.lower.Get()
	if !ok {
		return true
	}
	c := bytes.Compare(key, lo)
	return c > 0 || (c == 0 && !r.lowerOpen)
}

// BelowUpper reports whether key satisfies the upper bound.
func (r Range) BelowUpper(key []byte) bool {
	hi, ok := r.upper.Get()
	if !ok {
		return true
	}
	c := bytes.Compare(key, hi)
	return c < 0 || (c == 0 && !r.upperOpen)
}

// Contains reports whether key lies within r.
func (r Range) Contains(key []byte) bool {
	return r.AboveLower(key) && r.BelowUpper(key)
}

// Empty reports whether no key can lie within r.
// Ranges built by New are never empty; After and Before may produce one.
func (r Range) Empty() bool {
	lo, hasLower := r.lower.Get()
	hi, hasUpper := r.upper.Get()
	if !hasLower || !hasUpper {
		return false
	}
	c := bytes.Compare(lo, hi)
	return c > 0 || (c == 0 && (r.lowerOpen || r.upperOpen))
}

// After narrows r to the keys strictly above key, keeping the upper bound.
// The result is Empty when key is at or beyond the upper bound.
func (r Range) After(key []byte) Range {
	r.lower = mo.Some(bytes.Clone(key))
	r.lowerOpen = true
	return r
}

// Before narrows r to the keys strictly below key, keeping the lower bound.
// The result is Empty when key is at or below the lower bound.
func (r Range) Before(key []byte) Range {
	r.upper = mo.Some(bytes.Clone(key))
	r.upperOpen = true
	return r
}

// String renders r in interval notation, e.g. (a, z] or [-inf, +inf].
func (r Range) String() string {
	left, right := "[", "]"
	lower, upper := "-inf", "+inf"
	if lo, ok := r.lower.Get(); ok {
		lower = fmt.Sprintf("%q", lo)
		if r.lowerOpen {
			left = "("
		}
	}
	if hi, ok := r.upper.Get(); ok {
		upper = fmt.Sprintf("%q", hi)
		if r.upperOpen {
			right = ")"
		}
	}
	return left + lower + ", " + upper + right
}
