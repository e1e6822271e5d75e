// Package peersource defines the pull-based, rate-limited peer candidate
// supplier (spec §4.2) and the tracker-backed adapter built on top of it.
package peersource

import "github.com/rainlink/swarmcore/internal/peer"

// Source is a per-torrent supplier of candidate peers.
type Source interface {
	// Update attempts to refresh the candidate set. It returns true if new
	// data is available, false if rate-limited or unchanged. It must not
	// block the caller on unbounded I/O beyond its own configured timeout.
	Update() (bool, error)
	// Peers returns the current candidate snapshot, consumed after a
	// successful Update.
	Peers() []*peer.Peer
}

// Factory is a capability that yields a Source for a given torrent-id,
// matching §9's "PeerSourceFactory is a capability" note. Plug-in sources
// (PEX, DHT, ...) are user-supplied implementations registered at registry
// construction; the core provides only the tracker-backed Factory below.
type Factory interface {
	PeerSource(torrentID string) (Source, error)
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func(torrentID string) (Source, error)

// PeerSource implements Factory.
func (f FactoryFunc) PeerSource(torrentID string) (Source, error) {
	return f(torrentID)
}
