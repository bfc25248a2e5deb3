package solrpc

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
)

// blockhashCache holds the most recent blockhash for a short TTL so that a
// burst of transactions does not query the node once each.
type blockhashCache struct {
	hash   solana.Hash
	expiry time.Time

	ttl   time.Duration
	clock clock.Clock
	mu    sync.RWMutex
}

// newBlockhashCache creates an empty cache. A zero ttl disables caching.
func newBlockhashCache(ttl time.Duration, clk clock.Clock) *blockhashCache {
	return &blockhashCache{
		ttl:   ttl,
		clock: clk,
	}
}

// get returns the cached blockhash if it has not expired.
func (c *blockhashCache) get() (solana.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.hash == (solana.Hash{}) || !c.clock.Now().Before(c.expiry) {
		return solana.Hash{}, false
	}

	return c.hash, true
}

// set caches hash for the configured TTL.
func (c *blockhashCache) set(hash solana.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hash = hash
	c.expiry = c.clock.Now().Add(c.ttl)
}

// invalidate drops the cached blockhash.
func (c *blockhashCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hash = solana.Hash{}
	c.expiry = time.Time{}
}
