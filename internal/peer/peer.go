// Package peer defines the remote-endpoint identity shared across the
// registry, the peer cache and the connection worker.
package peer

import (
	"fmt"
	"net"
	"sync/atomic"
)

// ID is a 20-byte BitTorrent peer-id.
type ID [20]byte

// Options is a feature-flag bag attached to a cached peer. It is replaced
// wholesale, never mutated in place, so that a stored *Options can be read
// without holding any lock (see Peer.Options).
type Options struct {
	FastExtension     bool
	ExtensionProtocol bool
}

// Peer is a remote endpoint identity: an address, an optional peer-id and a
// mutable options bag. Equality and hashing are by address only, matching
// the reference client's practice of keying connection/dedup maps off the
// remote IP rather than the full peer struct (see connectedPeerIPs in the
// reference session package).
type Peer struct {
	Addr   net.Addr
	id     ID
	hasID  bool
	optval atomic.Value // holds *Options
}

// New constructs a Peer. opts may be nil, in which case the zero Options apply.
func New(addr net.Addr, id *ID, opts *Options) *Peer {
	p := &Peer{Addr: addr}
	if id != nil {
		p.id = *id
		p.hasID = true
	}
	if opts == nil {
		opts = &Options{}
	}
	p.optval.Store(opts)
	return p
}

// ID returns the peer-id and whether one was known at construction time.
func (p *Peer) ID() (ID, bool) {
	return p.id, p.hasID
}

// Options returns the current feature-options snapshot. Safe for concurrent
// use without holding any lock: the store side always publishes a complete,
// immutable *Options via atomic.Value (release/acquire semantics).
func (p *Peer) Options() *Options {
	return p.optval.Load().(*Options)
}

// SetOptions replaces the options bag. Used by the peer cache when a newer
// observation of an already-known endpoint arrives.
func (p *Peer) SetOptions(opts *Options) {
	if opts == nil {
		opts = &Options{}
	}
	p.optval.Store(opts)
}

// Key returns the string used for equality/hashing: the address only.
func (p *Peer) Key() string {
	return p.Addr.String()
}

// Equal reports whether two peers share the same address.
func (p *Peer) Equal(other *Peer) bool {
	if other == nil {
		return false
	}
	return p.Key() == other.Key()
}

// IsAnyLocal reports whether the peer's address is an any-local (0.0.0.0 or
// ::) address bound to the given port, the shape the local client's own
// announced address can take (see Registry.AddPeer's local-peer drop rule).
func (p *Peer) IsAnyLocal(port int) bool {
	tcpAddr, ok := p.Addr.(*net.TCPAddr)
	if !ok {
		return false
	}
	return tcpAddr.Port == port && (tcpAddr.IP == nil || tcpAddr.IP.IsUnspecified())
}

func (p *Peer) String() string {
	id, ok := p.ID()
	if !ok {
		return p.Addr.String()
	}
	return fmt.Sprintf("%s (%x)", p.Addr.String(), id[:6])
}
