package keyrange

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"
)

func some(s string) mo.Option[[]byte] {
	return mo.Some([]byte(s))
}

func none() mo.Option[[]byte] {
	return mo.None[[]byte]()
}

func TestNew(t *testing.T) {
	r, err := New(some("a"), some("z"), true, false)
	require.NoError(t, err)
	require.Equal(t, "(\"a\", \"z\"]", r.String())

	// open flags without a bound are dropped
	r, err = New(none(), some("m"), true, true)
	require.NoError(t, err)
	require.False(t, r.LowerOpen())
	require.True(t, r.UpperOpen())
	require.Equal(t, "[-inf, \"m\")", r.String())

	r, err = New(none(), none(), true, true)
	require.NoError(t, err)
	require.True(t, r.Unbounded())
	require.Equal(t, Range{}, r)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(some("z"), some("a"), false, false)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(some("k"), some("k"), true, false)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(some("k"), some("k"), false, true)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(some("k"), some("k"), false, false)
	require.NoError(t, err)
}

func TestNewClonesBounds(t *testing.T) {
	key := []byte("b")
	r := LowerBound(key, false)
	key[0] = 'x'

	lo, ok := r.Lower().Get()
	require.True(t, ok)
	require.Equal(t, []byte("b"), lo)
}

func TestContains(t *testing.T) {
	closed, err := Bound([]byte("b"), []byte("d"), false, false)
	require.NoError(t, err)
	open, err := Bound([]byte("b"), []byte("d"), true, true)
	require.NoError(t, err)

	tests := []struct {
		r    Range
		key  string
		want bool
	}{
		{Range{}, "", true},
		{Range{}, "anything", true},
		{closed, "a", false},
		{closed, "b", true},
		{closed, "c", true},
		{closed, "d", true},
		{closed, "e", false},
		{open, "b", false},
		{open, "c", true},
		{open, "d", false},
		{Only([]byte("c")), "c", true},
		{Only([]byte("c")), "cc", false},
		{LowerBound([]byte("c"), true), "c", false},
		{LowerBound([]byte("c"), true), "ca", true},
		{UpperBound([]byte("c"), false), "c", true},
		{UpperBound([]byte("c"), false), "ca", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.r.Contains([]byte(tt.key)), "%s contains %q", tt.r, tt.key)
	}
}

func TestAfterBefore(t *testing.T) {
	r, err := Bound([]byte("b"), []byte("y"), false, true)
	require.NoError(t, err)

	after := r.After([]byte("k"))
	require.Equal(t, "(\"k\", \"y\")", after.String())
	require.False(t, after.Contains([]byte("k")))
	require.True(t, after.Contains([]byte("ka")))
	require.False(t, after.Empty())

	before := r.Before([]byte("k"))
	require.Equal(t, "[\"b\", \"k\")", before.String())
	require.False(t, before.Contains([]byte("k")))
	require.True(t, before.Contains([]byte("b")))

	// r itself is untouched
	require.Equal(t, "[\"b\", \"y\")", r.String())
}

func TestEmpty(t *testing.T) {
	r, err := Bound([]byte("a"), []byte("c"), false, false)
	require.NoError(t, err)

	require.False(t, r.Empty())
	require.False(t, r.After([]byte("b")).Empty())
	require.True(t, r.After([]byte("c")).Empty())
	require.True(t, r.Before([]byte("a")).Empty())
	require.True(t, Only([]byte("x")).After([]byte("x")).Empty())
	require.False(t, Range{}.After([]byte("x")).Empty())
}
