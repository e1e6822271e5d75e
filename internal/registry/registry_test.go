package registry

import (
	"net"
	"sync"
	"testing"
	"time"

	mockclock "github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/rainlink/swarmcore/internal/announcekey"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/peercache"
	"github.com/rainlink/swarmcore/internal/peersource"
)

// fakeIdentity is a hand-written IdentityService fake.
type fakeIdentity struct{ id [20]byte }

func (f fakeIdentity) LocalPeerID() [20]byte { return f.id }

// fakeTorrents is a hand-written TorrentRegistry fake.
type fakeTorrents struct {
	mu       sync.Mutex
	descs    map[string]Descriptor
	torrents map[string]Torrent
}

func newFakeTorrents() *fakeTorrents {
	return &fakeTorrents{descs: make(map[string]Descriptor), torrents: make(map[string]Torrent)}
}

func (f *fakeTorrents) add(id string, desc Descriptor, t Torrent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descs[id] = desc
	f.torrents[id] = t
}

func (f *fakeTorrents) GetDescriptor(id string) (Descriptor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.descs[id]
	return d, ok
}

func (f *fakeTorrents) GetTorrent(id string) (Torrent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.torrents[id]
	return t, ok
}

func testAddr(s string) net.Addr {
	a, _ := net.ResolveTCPAddr("tcp", s)
	return a
}

func newTestRegistry(t *testing.T, torrents *fakeTorrents, trackers *peersource.TrackerSourceFactory, clk mockclock.Clock) *Registry {
	t.Helper()
	cfg := Config{
		LocalPeerAddress:      "0.0.0.0",
		LocalPeerPort:         6881,
		PeerDiscoveryInterval: time.Hour,
		TrackerQueryInterval:  time.Hour,
	}
	return New(cfg, peercache.New(), torrents, trackers, fakeIdentity{}, clk)
}

func TestAddPeerDeliversToSubscribers(t *testing.T) {
	r := require.New(t)
	reg := newTestRegistry(t, newFakeTorrents(), nil, nil)

	var got []*peer.Peer
	var mu sync.Mutex
	reg.AddPeerConsumer("t1", func(p *peer.Peer) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p)
	})

	p := peer.New(testAddr("1.2.3.4:6881"), nil, nil)
	reg.AddPeer("t1", p)

	mu.Lock()
	defer mu.Unlock()
	r.Len(got, 1)
	r.Equal(p.Key(), got[0].Key())
}

func TestAddPeerDropsLocalPeer(t *testing.T) {
	r := require.New(t)
	reg := newTestRegistry(t, newFakeTorrents(), nil, nil)

	var invoked bool
	reg.AddPeerConsumer("t1", func(p *peer.Peer) { invoked = true })

	localLike := peer.New(&net.TCPAddr{IP: net.IPv4zero, Port: 6881}, nil, nil)
	reg.AddPeer("t1", localLike)

	r.False(invoked, "a peer at the any-local address on our own port must never reach subscribers")
	r.Equal(1, reg.cache.Len(), "the local-like peer is still interned into the cache")
}

func TestAddPeerConsumerIsolatesPanickingCallback(t *testing.T) {
	r := require.New(t)
	reg := newTestRegistry(t, newFakeTorrents(), nil, nil)

	var secondCalled bool
	reg.AddPeerConsumer("t1", func(p *peer.Peer) { panic("boom") })
	reg.AddPeerConsumer("t1", func(p *peer.Peer) { secondCalled = true })

	r.NotPanics(func() {
		reg.AddPeer("t1", peer.New(testAddr("5.6.7.8:6881"), nil, nil))
	})
	r.True(secondCalled, "a panicking subscriber must not prevent later subscribers from running")
}

func TestRemovePeerConsumersDropsSubscribers(t *testing.T) {
	r := require.New(t)
	reg := newTestRegistry(t, newFakeTorrents(), nil, nil)

	var called bool
	reg.AddPeerConsumer("t1", func(p *peer.Peer) { called = true })
	reg.RemovePeerConsumers("t1")
	reg.AddPeer("t1", peer.New(testAddr("9.9.9.9:6881"), nil, nil))

	r.False(called)
}

func TestSelectAnnounceKeysIgnoresExtraForPrivateTorrent(t *testing.T) {
	r := require.New(t)
	reg := newTestRegistry(t, newFakeTorrents(), nil, nil)

	reg.AddPeerSource("t1", announcekey.Single("http://extra.example/announce"))
	own := announcekey.Single("http://own.example/announce")
	torrent := Torrent{AnnounceKey: own, HasAnnounceKey: true, IsPrivate: true}

	keys := reg.selectAnnounceKeys("t1", torrent)

	r.Len(keys, 1)
	r.Equal(own.CanonicalString(), keys[0].CanonicalString())
}

func TestSelectAnnounceKeysIncludesExtraForPublicTorrent(t *testing.T) {
	r := require.New(t)
	reg := newTestRegistry(t, newFakeTorrents(), nil, nil)

	extra := announcekey.Single("http://extra.example/announce")
	reg.AddPeerSource("t1", extra)
	own := announcekey.Single("http://own.example/announce")
	torrent := Torrent{AnnounceKey: own, HasAnnounceKey: true, IsPrivate: false}

	keys := reg.selectAnnounceKeys("t1", torrent)

	r.Len(keys, 2)
}

func TestSweepSkipsTorrentsWithNoSubscribers(t *testing.T) {
	r := require.New(t)
	torrents := newFakeTorrents()
	torrents.add("t1", Descriptor{IsActive: true}, Torrent{})
	reg := newTestRegistry(t, torrents, nil, nil)

	// No subscribers registered for t1: sweepTorrent must never be reached.
	reg.sweep()

	r.Equal(0, reg.cache.Len())
}

func TestSweepSkipsInactiveTorrent(t *testing.T) {
	r := require.New(t)
	torrents := newFakeTorrents()
	torrents.add("t1", Descriptor{IsActive: false}, Torrent{})
	reg := newTestRegistry(t, torrents, nil, nil)
	reg.AddPeerConsumer("t1", func(p *peer.Peer) {})

	r.NotPanics(func() { reg.sweepTorrent("t1") })
}
