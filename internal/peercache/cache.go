// Package peercache holds the canonical, deduplicated directory of peers
// known to the client. It interns each distinct endpoint once so that
// "the peer at 1.2.3.4:6881" is the same *peer.Peer object everywhere it is
// handed out, the way the reference client's connectedPeerIPs/peerIDs maps
// make sure a single IP is only ever tracked once.
package peercache

import (
	"net"
	"sync"

	"github.com/rainlink/swarmcore/internal/peer"
)

// Cache is the process-singleton peer directory. The zero value is not
// usable; construct with New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*peer.Peer
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*peer.Peer)}
}

// Register interns p if no entry exists yet for its address, returning the
// newly-interned peer. If an entry already exists, its options are replaced
// with p's options and the existing (now-updated) entry is returned.
//
// Register is atomic with respect to Lookup: both take the same mutex, so a
// concurrent Lookup can never observe a half-constructed entry, and a
// concurrent Register/Lookup pair can never create two distinct objects for
// the same endpoint.
func (c *Cache) Register(p *peer.Peer) *peer.Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := p.Key()
	if existing, ok := c.entries[key]; ok {
		existing.SetOptions(p.Options())
		return existing
	}
	c.entries[key] = p
	return p
}

// Lookup returns the cached peer for addr, creating a minimal entry (address
// only, no peer-id, default options) if none exists yet.
func (c *Cache) Lookup(addr net.Addr) *peer.Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := addr.String()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	p := peer.New(addr, nil, nil)
	c.entries[key] = p
	return p
}

// Len returns the number of distinct endpoints currently cached. Intended
// for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
