// Package registry implements the Peer Registry (spec §4.3): the
// orchestrator that periodically queries trackers and plug-in peer sources
// across all active torrents, fans discovered peers out to subscribers, and
// enforces the BEP-27 private-torrent tracker restriction.
package registry

import (
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/rainlink/swarmcore/internal/announcekey"
	"github.com/rainlink/swarmcore/internal/logger"
	"github.com/rainlink/swarmcore/internal/metrics"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/peercache"
	"github.com/rainlink/swarmcore/internal/peersource"
)

// Registry is the process-singleton peer registry (§9 "Global state").
// Construct once with New and pass the handle explicitly to collaborators.
type Registry struct {
	cfg       Config
	cache     *peercache.Cache
	torrents  TorrentRegistry
	trackers  *peersource.TrackerSourceFactory
	localPeer *peer.Peer
	log       logger.Logger
	clock     clock.Clock
	stats     *metrics.RegistryStats

	mu        sync.Mutex
	extraKeys map[string]map[string]announcekey.AnnounceKey

	subsMu      sync.Mutex
	subscribers map[string][]PeerConsumer

	closeC chan struct{}
	doneC  chan struct{}
}

// New constructs a Registry. clk may be nil to use the real wall clock;
// tests pass a clock.NewMock() so the discovery interval can be advanced
// deterministically instead of sleeping wall-clock time.
func New(cfg Config, cache *peercache.Cache, torrents TorrentRegistry, trackers *peersource.TrackerSourceFactory, identity IdentityService, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	id := identity.LocalPeerID()
	addr := &net.TCPAddr{IP: net.ParseIP(cfg.LocalPeerAddress), Port: int(cfg.LocalPeerPort)}
	return &Registry{
		cfg:         cfg,
		cache:       cache,
		torrents:    torrents,
		trackers:    trackers,
		localPeer:   peer.New(addr, &id, nil),
		log:         logger.New("registry"),
		clock:       clk,
		stats:       metrics.NewRegistryStats(),
		extraKeys:   make(map[string]map[string]announcekey.AnnounceKey),
		subscribers: make(map[string][]PeerConsumer),
		closeC:      make(chan struct{}),
		doneC:       make(chan struct{}),
	}
}

// LocalPeer returns this client's own Peer identity.
func (r *Registry) LocalPeer() *peer.Peer {
	return r.localPeer
}

// GetPeerForAddress delegates to the peer cache (§4.3 table).
func (r *Registry) GetPeerForAddress(addr net.Addr) *peer.Peer {
	return r.cache.Lookup(addr)
}

// AddPeer interns p into the cache, then — unless p is this client's own
// local-peer identity (any-local address, matching port) — delivers it to
// every subscriber of torrentID.
//
// Per spec Open Question 4, the reference source registers into the cache
// before performing the local-peer check; this implementation preserves
// that order deliberately (see DESIGN.md) so the cache always gains an
// entry for an observed local-peer loopback, while subscribers never see
// one.
func (r *Registry) AddPeer(torrentID string, p *peer.Peer) {
	cached := r.cache.Register(p)
	if cached.IsAnyLocal(int(r.cfg.LocalPeerPort)) {
		return
	}
	r.stats.PeersDiscovered.Inc(1)
	r.subsMu.Lock()
	subs := append([]PeerConsumer(nil), r.subscribers[torrentID]...)
	r.subsMu.Unlock()
	for _, cb := range subs {
		r.invokeConsumer(cb, cached)
	}
}

func (r *Registry) invokeConsumer(cb PeerConsumer, p *peer.Peer) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("peer consumer panicked: %v", rec)
		}
	}()
	cb(p)
}

// AddPeerConsumer appends cb to torrentID's subscriber list. Subscribing the
// same callback twice produces two invocations per discovered peer —
// subscribers form a list, not a set.
func (r *Registry) AddPeerConsumer(torrentID string, cb PeerConsumer) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	r.subscribers[torrentID] = append(r.subscribers[torrentID], cb)
}

// RemovePeerConsumers drops all subscribers for torrentID. The core
// specifies the method but not its trigger (§9); wiring this to a
// torrent-stopped/completed hook is left to the caller.
func (r *Registry) RemovePeerConsumers(torrentID string) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	delete(r.subscribers, torrentID)
}

// AddPeerSource adds key to torrentID's extra announce-key set.
func (r *Registry) AddPeerSource(torrentID string, key announcekey.AnnounceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.extraKeys[torrentID]
	if !ok {
		set = make(map[string]announcekey.AnnounceKey)
		r.extraKeys[torrentID] = set
	}
	set[key.CanonicalString()] = key
}

// Start launches the discovery scheduler goroutine (the "peer-collector"
// single-threaded periodic scheduler of §5). The first sweep fires 1ms
// after Start is called; subsequent sweeps fire every PeerDiscoveryInterval.
func (r *Registry) Start() {
	go r.run()
}

// Stop interrupts the scheduler immediately; an in-flight tracker query is
// abandoned and Stop does not wait for it.
func (r *Registry) Stop() {
	close(r.closeC)
}

func (r *Registry) run() {
	defer close(r.doneC)
	timer := r.clock.Timer(time.Millisecond)
	defer timer.Stop()
	for {
		select {
		case <-r.closeC:
			return
		case <-timer.C:
			r.sweep()
			timer.Reset(r.cfg.PeerDiscoveryInterval)
		}
	}
}

// Stats exposes the registry's discovery-sweep metrics.
func (r *Registry) Stats() *metrics.RegistryStats { return r.stats }

// sweep runs one discovery pass over every torrent-id that currently has
// subscribers (§8: "For any torrent with no subscribers, no peer sources
// are queried").
func (r *Registry) sweep() {
	start := r.clock.Now()
	defer func() { r.stats.SweepDuration.Update(r.clock.Now().Sub(start)) }()

	r.subsMu.Lock()
	ids := make([]string, 0, len(r.subscribers))
	for id, subs := range r.subscribers {
		if len(subs) > 0 {
			ids = append(ids, id)
		}
	}
	r.subsMu.Unlock()

	for _, id := range ids {
		r.sweepTorrent(id)
	}
}

func (r *Registry) sweepTorrent(torrentID string) {
	desc, ok := r.torrents.GetDescriptor(torrentID)
	if !ok || !desc.IsActive {
		return
	}
	t, ok := r.torrents.GetTorrent(torrentID)
	if !ok {
		return
	}

	for _, key := range r.selectAnnounceKeys(torrentID, t) {
		r.queryTracker(torrentID, key)
	}

	if !t.IsPrivate {
		for _, f := range r.cfg.ExtraPeerSourceFactories {
			r.queryPluginFactory(torrentID, f)
		}
	}
}

// selectAnnounceKeys implements §4.3 step 2. The torrent's own announce key
// is always considered. A private torrent's extra announce keys are logged
// and ignored (BEP-27); a non-private torrent's extra keys are queried from
// a snapshot taken under the registry mutex, so add_peer_source callers
// never block on tracker I/O.
func (r *Registry) selectAnnounceKeys(torrentID string, t Torrent) []announcekey.AnnounceKey {
	var keys []announcekey.AnnounceKey
	if t.HasAnnounceKey {
		keys = append(keys, t.AnnounceKey)
	}

	r.mu.Lock()
	extra := r.extraKeys[torrentID]
	n := len(extra)
	snapshot := make([]announcekey.AnnounceKey, 0, n)
	for _, k := range extra {
		snapshot = append(snapshot, k)
	}
	r.mu.Unlock()

	if t.IsPrivate {
		if n > 0 {
			r.log.Warningf("torrent %s is private; ignoring %d extra announce key(s)", torrentID, n)
		}
		return keys
	}
	return append(keys, snapshot...)
}

func (r *Registry) queryTracker(torrentID string, key announcekey.AnnounceKey) {
	defer r.recoverSweep(torrentID, "tracker source")
	src, ok := r.trackers.Source(torrentID, key)
	if !ok {
		// UnsupportedTrackerProtocol: silent skip, no source created (§7).
		return
	}
	r.query(torrentID, src)
}

func (r *Registry) queryPluginFactory(torrentID string, f peersource.Factory) {
	defer r.recoverSweep(torrentID, "peer source factory")
	src, err := f.PeerSource(torrentID)
	if err != nil {
		r.log.Warningf("peer source factory failed for torrent %s: %v", torrentID, err)
		return
	}
	if src == nil {
		return
	}
	r.query(torrentID, src)
}

// query implements §4.3.1.
func (r *Registry) query(torrentID string, src peersource.Source) {
	defer r.recoverSweep(torrentID, "peer source query")
	ok, err := src.Update()
	if err != nil {
		r.log.Warningf("peer source update failed for torrent %s: %v", torrentID, err)
	}
	if !ok {
		return
	}
	for _, p := range src.Peers() {
		r.addPeerIsolated(torrentID, p)
	}
}

func (r *Registry) addPeerIsolated(torrentID string, p *peer.Peer) {
	defer r.recoverSweep(torrentID, "add peer")
	r.AddPeer(torrentID, p)
}

func (r *Registry) recoverSweep(torrentID, stage string) {
	if rec := recover(); rec != nil {
		r.log.Errorf("torrent %s: %s panicked: %v", torrentID, stage, rec)
	}
}
