package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/keyrange"
	"github.com/dacapoday/kvstream/kv"
)

// probe wraps a kv.DB to count requests and inject transaction timeouts.
type probe struct {
	db       *kv.DB
	begins   atomic.Int64
	advances atomic.Int64

	// expire, when set, decides after each returned record whether the
	// transaction times out before the next request.
	expire func(key []byte, n int64) bool

	mu     sync.Mutex
	ranges []keyrange.Range
	txns   []*kv.Tx
}

func newProbe(t *testing.T, name string, keys ...string) *probe {
	t.Helper()
	db := kv.New()
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.CreateCollection(name))
	for _, key := range keys {
		require.NoError(t, db.Put(name, []byte(key), []byte("v"+key)))
	}
	return &probe{db: db}
}

func (p *probe) Begin(ctx context.Context, name string) (kvstream.Txn, error) {
	p.begins.Add(1)
	tx, err := p.db.BeginTx(ctx, name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.txns = append(p.txns, tx)
	p.mu.Unlock()
	return &probeTxn{Tx: tx, probe: p}, nil
}

func (p *probe) rangeAt(i int) keyrange.Range {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ranges[i]
}

func (p *probe) txn(i int) *kv.Tx {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txns[i]
}

type probeTxn struct {
	*kv.Tx
	probe *probe
}

func (tx *probeTxn) Cursor(ctx context.Context, r keyrange.Range, dir kvstream.Direction) (kvstream.Cursor, error) {
	tx.probe.mu.Lock()
	tx.probe.ranges = append(tx.probe.ranges, r)
	tx.probe.mu.Unlock()
	cur, err := tx.Tx.Cursor(ctx, r, dir)
	if err != nil {
		return nil, err
	}
	return &probeCursor{Cursor: cur, tx: tx}, nil
}

type probeCursor struct {
	kvstream.Cursor
	tx *probeTxn
}

func (c *probeCursor) Advance(ctx context.Context) (rec kvstream.Record, ok bool, err error) {
	n := c.tx.probe.advances.Add(1)
	rec, ok, err = c.Cursor.Advance(ctx)
	if ok && c.tx.probe.expire != nil && c.tx.probe.expire(rec.Key, n) {
		c.tx.Expire()
	}
	return
}

func expireAfterKey(key string) func([]byte, int64) bool {
	return func(k []byte, _ int64) bool {
		return string(k) == key
	}
}

func expireEvery(n int64) func([]byte, int64) bool {
	return func(_ []byte, i int64) bool {
		return i%n == 0
	}
}

// drain reads s to the end and returns the keys it produced.
func drain(t *testing.T, s *Stream) []string {
	t.Helper()
	var keys []string
	for s.Next(context.Background()) {
		keys = append(keys, string(s.Key()))
	}
	return keys
}
