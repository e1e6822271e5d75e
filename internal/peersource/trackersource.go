package peersource

import (
	"context"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"golang.org/x/time/rate"

	"github.com/rainlink/swarmcore/internal/announcekey"
	"github.com/rainlink/swarmcore/internal/logger"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/tracker"
)

// StatsProvider reports the announce stats (uploaded/downloaded/left, our
// peer-id and listen port) for a torrent at announce time. Implemented by
// whatever owns torrent lifecycle state — out of this module's scope.
type StatsProvider func(torrentID string) tracker.AnnounceRequest

// TrackerSourceFactory is the Tracker Peer Source adapter of spec §4.2. It
// memoizes one Source per (torrent-id, AnnounceKey) pair so that the
// registry, which asks for a source fresh on every discovery sweep (§4.3
// step 3), is actually handed back the same rate-limited, stateful object
// each time rather than a new one with a reset clock.
type TrackerSourceFactory struct {
	svc           tracker.Service
	queryInterval time.Duration
	stats         StatsProvider
	clock         clock.Clock
	log           logger.Logger

	mu      sync.Mutex
	sources map[string]*trackerSource
}

// NewTrackerSourceFactory constructs a factory. clk may be nil, in which
// case the real wall clock is used; tests pass a clock.NewMock() so the
// trackerQueryInterval rate limit can be exercised deterministically.
func NewTrackerSourceFactory(svc tracker.Service, queryInterval time.Duration, stats StatsProvider, clk clock.Clock) *TrackerSourceFactory {
	if clk == nil {
		clk = clock.New()
	}
	return &TrackerSourceFactory{
		svc:           svc,
		queryInterval: queryInterval,
		stats:         stats,
		clock:         clk,
		log:           logger.New("peersource/tracker"),
		sources:       make(map[string]*trackerSource),
	}
}

// Source returns the tracker peer source for (torrentID, key), or nil if the
// key's protocol(s) are unsupported. Per §4.2, for a multi-tier key a source
// is only returned when every URL across every tier is supported — a
// conservative, deliberately-preserved policy (spec Open Question 1).
func (f *TrackerSourceFactory) Source(torrentID string, key announcekey.AnnounceKey) (Source, bool) {
	urls := key.URLs()
	if len(urls) == 0 {
		return nil, false
	}
	for _, u := range urls {
		if !f.svc.IsSupportedProtocol(u) {
			return nil, false
		}
	}

	cacheKey := torrentID + "\x00" + key.CanonicalString()
	f.mu.Lock()
	defer f.mu.Unlock()
	if src, ok := f.sources[cacheKey]; ok {
		return src, true
	}

	trackers := make([]tracker.Tracker, 0, len(urls))
	for _, u := range urls {
		t, err := f.svc.New(u)
		if err != nil {
			f.log.Warningf("cannot construct tracker client for %q: %v", u, err)
			continue
		}
		trackers = append(trackers, t)
	}
	if len(trackers) == 0 {
		return nil, false
	}

	src := &trackerSource{
		torrentID: torrentID,
		trackers:  trackers,
		stats:     f.stats,
		clock:     f.clock,
		limiter:   rate.NewLimiter(rate.Every(f.queryInterval), 1),
		log:       f.log,
	}
	f.sources[cacheKey] = src
	return src, true
}

// trackerSource is one stateful, rate-limited Source bound to one or more
// Tracker clients (one per tier-flattened URL of its AnnounceKey).
type trackerSource struct {
	torrentID string
	trackers  []tracker.Tracker
	stats     StatsProvider
	clock     clock.Clock
	limiter   *rate.Limiter
	log       logger.Logger

	mu      sync.Mutex
	current []*peer.Peer
}

// Update implements Source. It enforces trackerQueryInterval via a
// token-bucket limiter with burst 1: AllowN is non-blocking and returns
// false exactly when the minimum interval since the last query attempt it
// let through hasn't elapsed yet, whether that attempt succeeded or failed,
// matching §4.2's "must not block... rate-limited"
// contract without the caller ever waiting.
func (s *trackerSource) Update() (bool, error) {
	if !s.limiter.AllowN(s.clock.Now(), 1) {
		return false, nil
	}

	req := s.stats(s.torrentID)
	var peers []*peer.Peer
	var lastErr error
	for _, t := range s.trackers {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		resp, err := t.Announce(ctx, req)
		cancel()
		if err != nil {
			lastErr = err
			s.log.Warningf("tracker %s announce failed: %v", t.URL(), err)
			continue
		}
		for _, addr := range resp.Peers {
			peers = append(peers, peer.New(addr, nil, nil))
		}
	}
	s.mu.Lock()
	s.current = peers
	s.mu.Unlock()
	if len(peers) == 0 && lastErr != nil {
		return false, lastErr
	}
	return true, nil
}

// Peers implements Source.
func (s *trackerSource) Peers() []*peer.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
