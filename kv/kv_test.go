package kv

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db := New(opts...)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestKVPutGet tests basic Put and Get operations.
func TestKVPutGet(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.CreateCollection("c"))

	key := []byte("hello")
	val := []byte("world")
	require.NoError(t, db.Put("c", key, val))

	// the store keeps its own copy
	val[0] = 'W'

	got, err := db.Get("c", key)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), got)

	got, err = db.Get("c", []byte("nonexistent"))
	require.NoError(t, err)
	require.Nil(t, got)
}

// TestKVPutMultiple sets 100 keys out of order and checks they are sorted.
func TestKVPutMultiple(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.CreateCollection("c"))

	count := 100
	for i := range count {
		j := (i * 37) % count
		key := fmt.Appendf(nil, "key-%03d", j)
		val := fmt.Appendf(nil, "value-%03d", j)
		require.NoError(t, db.Put("c", key, val))
	}

	n, err := db.Len("c")
	require.NoError(t, err)
	require.Equal(t, count, n)

	snap := db.collections["c"].snap
	for i := 1; i < len(snap.entries); i++ {
		require.Negative(t, bytes.Compare(snap.entries[i-1].key, snap.entries[i].key))
	}
}

// TestKVOverwriteDelete tests that Put replaces and nil deletes.
func TestKVOverwriteDelete(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.CreateCollection("c"))

	require.NoError(t, db.Put("c", []byte("k"), []byte("1")))
	require.NoError(t, db.Put("c", []byte("k"), []byte("2")))

	got, err := db.Get("c", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)

	require.NoError(t, db.Put("c", []byte("k"), nil))
	got, err = db.Get("c", []byte("k"))
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, db.Put("c", []byte("k"), []byte("3")))
	require.NoError(t, db.Delete("c", []byte("k")))
	n, err := db.Len("c")
	require.NoError(t, err)
	require.Zero(t, n)

	// deleting a missing key is fine
	require.NoError(t, db.Delete("c", []byte("missing")))
}

// TestKVDuplicates tests Add on collections with and without duplicates.
func TestKVDuplicates(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.CreateCollection("index", AllowDuplicates()))
	require.NoError(t, db.CreateCollection("plain"))

	for _, name := range []string{"index", "plain"} {
		require.NoError(t, db.Add(name, []byte("k"), []byte("1")))
		require.NoError(t, db.Add(name, []byte("k"), []byte("2")))
		require.NoError(t, db.Add(name, []byte("j"), []byte("0")))
	}

	n, err := db.Len("index")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	got, err := db.Get("index", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got, "Get returns the first duplicate")

	n, err = db.Len("plain")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	got, err = db.Get("plain", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)

	// Put collapses duplicates
	require.NoError(t, db.Put("index", []byte("k"), []byte("3")))
	n, err = db.Len("index")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// TestKVBatch tests that Batch applies puts and deletes together.
func TestKVBatch(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.CreateCollection("planets"))
	require.NoError(t, db.Put("planets", []byte("9"), []byte("Pluto")))

	err := db.Batch("planets", func(yield func([]byte, []byte) bool) {
		if !yield([]byte("4"), []byte("Mars")) {
			return
		}
		if !yield([]byte("2"), []byte("Venus")) {
			return
		}
		if !yield([]byte("9"), nil) {
			return
		}
	})
	require.NoError(t, err)

	require.Equal(t, []string{"2=Venus", "4=Mars"}, dump(db, "planets"))
}

// TestKVCollections tests collection management errors.
func TestKVCollections(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.CreateCollection("b"))
	require.NoError(t, db.CreateCollection("a"))
	require.ErrorIs(t, db.CreateCollection("a"), ErrExists)
	require.Equal(t, []string{"a", "b"}, db.Collections())

	require.ErrorIs(t, db.Put("missing", []byte("k"), []byte("v")), ErrNotFound)
	_, err := db.Get("missing", []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = db.Len("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestKVClose tests that a closed DB rejects every call.
func TestKVClose(t *testing.T) {
	db := New()
	require.NoError(t, db.CreateCollection("c"))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	require.ErrorIs(t, db.Put("c", []byte("k"), []byte("v")), ErrClosed)
	require.ErrorIs(t, db.CreateCollection("d"), ErrClosed)
	_, err := db.Get("c", []byte("k"))
	require.ErrorIs(t, err, ErrClosed)
}

// TestKVLoadTOML tests loading collections from TOML.
func TestKVLoadTOML(t *testing.T) {
	db := newDB(t)
	err := db.LoadTOML(strings.NewReader(`
[planets]
1 = "Mercury"
2 = "Venus"
3 = 3.5
4 = true

[moons]
Earth = "Moon"
Mars = ["Phobos", "Deimos"]
`))
	require.NoError(t, err)
	require.Equal(t, []string{"moons", "planets"}, db.Collections())

	require.Equal(t, []string{"1=Mercury", "2=Venus", "3=3.5", "4=true"}, dump(db, "planets"))
	require.Equal(t, []string{"Earth=Moon", "Mars=Phobos", "Mars=Deimos"}, dump(db, "moons"))
}

func TestKVLoadTOMLErrors(t *testing.T) {
	db := newDB(t)
	require.Error(t, db.LoadTOML(strings.NewReader(`not = [valid`)))
	require.Error(t, db.LoadTOML(strings.NewReader(`top = "level"`)))
	require.Error(t, db.LoadTOML(strings.NewReader("[outer]\n[outer.inner]\nk = 1\n")))
}

func dump(db *DB, name string) (out []string) {
	db.rw.RLock()
	defer db.rw.RUnlock()
	for _, e := range db.collections[name].snap.entries {
		out = append(out, string(e.key)+"="+string(e.val))
	}
	return
}
