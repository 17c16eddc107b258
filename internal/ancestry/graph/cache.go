package graph

import (
	"context"
	"sync"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/oracle"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	tx  *model.Transaction
	err error
}

// cache memoizes resolutions for the lifetime of one traversal. Concurrent
// lookups of the same txid share a single oracle call. Only successes and
// errors local to the transaction are remembered.
type cache struct {
	oracle Oracle
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newCache(o Oracle) *cache {
	return &cache{
		oracle:  o,
		entries: make(map[string]cacheEntry),
	}
}

func (c *cache) resolve(ctx context.Context, txid string) (*model.Transaction, error) {
	if e, ok := c.lookup(txid); ok {
		return e.tx, e.err
	}

	v, err, _ := c.group.Do(txid, func() (interface{}, error) {
		if e, ok := c.lookup(txid); ok {
			return e.tx, e.err
		}
		tx, err := c.oracle.Resolve(ctx, txid)
		if err == nil || oracle.IsLocal(err) {
			c.store(txid, cacheEntry{tx: tx, err: err})
		}
		return tx, err
	})
	tx, _ := v.(*model.Transaction)
	return tx, err
}

func (c *cache) lookup(txid string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[txid]
	return e, ok
}

func (c *cache) store(txid string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[txid] = e
}
