package registry

import (
	"github.com/rainlink/swarmcore/internal/announcekey"
	"github.com/rainlink/swarmcore/internal/peer"
)

// Descriptor is the subset of torrent lifecycle state the registry needs to
// decide whether a torrent is still worth discovering peers for.
type Descriptor struct {
	IsActive bool
}

// Torrent is the subset of torrent identity/policy the registry needs.
type Torrent struct {
	AnnounceKey    announcekey.AnnounceKey
	HasAnnounceKey bool
	IsPrivate      bool
}

// TorrentRegistry is the external collaborator of spec §6 that resolves a
// torrent-id to its lifecycle descriptor and its identity/policy.
type TorrentRegistry interface {
	GetDescriptor(id string) (Descriptor, bool)
	GetTorrent(id string) (Torrent, bool)
}

// IdentityService is the external collaborator (§6) that hands out this
// client's own 20-byte peer-id.
type IdentityService interface {
	LocalPeerID() [20]byte
}

// PeerConsumer is a subscriber callback invoked synchronously on the
// discovery thread for each newly-discovered peer of a torrent (§4.3.2).
type PeerConsumer func(p *peer.Peer)
