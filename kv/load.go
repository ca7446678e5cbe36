package kv

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// LoadFile reads collections from a TOML file; see LoadTOML.
func (db *DB) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open data file")
	}
	defer f.Close()
	return db.LoadTOML(f)
}

// LoadTOML reads collections from TOML. Every top-level table is a
// collection, created if missing. Scalar values become records keyed by
// their TOML key; an array becomes one record per element under the same
// key, and a collection created for a table holding arrays allows
// duplicates. Nested tables are rejected.
//
//	[planets]
//	1 = "Mercury"
//	2 = "Venus"
//
//	[moons]
//	Mars = ["Phobos", "Deimos"]
func (db *DB) LoadTOML(r io.Reader) error {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return errors.Wrap(err, "parse data file")
	}

	names := tree.Keys()
	sort.Strings(names)
	for _, name := range names {
		table, ok := tree.GetPath([]string{name}).(*toml.Tree)
		if !ok {
			return errors.Errorf("data file: %q is not a table", name)
		}
		if err = db.loadTable(name, table); err != nil {
			return errors.Wrapf(err, "data file: collection %q", name)
		}
	}
	return nil
}

func (db *DB) loadTable(name string, table *toml.Tree) error {
	keys := table.Keys()
	sort.Strings(keys)

	dups := false
	for _, key := range keys {
		if _, ok := table.GetPath([]string{key}).([]interface{}); ok {
			dups = true
		}
	}

	var opts []CollectionOption
	if dups {
		opts = append(opts, AllowDuplicates())
	}
	if err := db.CreateCollection(name, opts...); err != nil && !errors.Is(err, ErrExists) {
		return err
	}

	for _, key := range keys {
		switch v := table.GetPath([]string{key}).(type) {
		case *toml.Tree, []*toml.Tree:
			return errors.Errorf("key %q: nested tables are not supported", key)
		case []interface{}:
			for _, elem := range v {
				if err := db.Add(name, []byte(key), scalar(elem)); err != nil {
					return err
				}
			}
		default:
			if err := db.Put(name, []byte(key), scalar(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func scalar(v interface{}) []byte {
	switch v := v.(type) {
	case string:
		return []byte(v)
	case time.Time:
		return []byte(v.Format(time.RFC3339Nano))
	default:
		return fmt.Appendf(nil, "%v", v)
	}
}
