// Package connmanager implements the minimal connection manager of spec
// §4.6: it owns live Connection Workers keyed by remote address, subscribes
// to the Peer Registry for newly discovered peers, dials them, and tears a
// worker down the instant its do_work() loop returns an error.
package connmanager

import (
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/rainlink/swarmcore/internal/connio"
	"github.com/rainlink/swarmcore/internal/connworker"
	"github.com/rainlink/swarmcore/internal/logger"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/registry"
)

// Registry is the subset of the Peer Registry's public API the connection
// manager depends on (spec §4.3 table).
type Registry interface {
	LocalPeer() *peer.Peer
	GetPeerForAddress(addr net.Addr) *peer.Peer
	AddPeerConsumer(torrentID string, cb registry.PeerConsumer)
}

// Dialer opens a TCP connection to a peer. Extracted so tests can supply an
// in-memory pipe instead of a real socket.
type Dialer interface {
	Dial(addr net.Addr) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(addr net.Addr) (net.Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(addr net.Addr) (net.Conn, error) { return f(addr) }

// Collaborators bundles the per-torrent Block I/O and PieceManager
// collaborators a worker needs (spec §6), resolved once per torrent-id by
// the caller and handed to Manager.Serve.
type Collaborators struct {
	Pieces          piecemgr.Manager
	RequestConsumer connio.RequestConsumer
	BlockConsumer   connio.BlockConsumer
	BlockSupplier   connio.BlockSupplier
}

// Manager owns the live set of Connection Workers. It holds only
// non-owning references to the shared PieceManager and Peer Registry (§9
// acyclic ownership) and performs no piece-selection or protocol logic
// itself — that lives entirely in connworker.
type Manager struct {
	registry Registry
	dialer   Dialer
	clock    clock.Clock
	log      logger.Logger

	mu      sync.Mutex
	workers map[string]*managedWorker
}

type managedWorker struct {
	conn   connio.Connection
	worker *connworker.Worker
	stopC  chan struct{}
}

// New constructs a Manager. clk may be nil to use the real wall clock.
func New(registry Registry, dialer Dialer, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		registry: registry,
		dialer:   dialer,
		clock:    clk,
		log:      logger.New("connmanager"),
		workers:  make(map[string]*managedWorker),
	}
}

// Serve subscribes the manager to torrentID's peer discovery, dialing and
// running a worker for every newly discovered peer using the given
// collaborators.
func (m *Manager) Serve(torrentID string, col Collaborators) {
	m.registry.AddPeerConsumer(torrentID, func(p *peer.Peer) {
		m.onPeerDiscovered(p, col)
	})
}

func (m *Manager) onPeerDiscovered(p *peer.Peer, col Collaborators) {
	key := p.Key()

	m.mu.Lock()
	if _, exists := m.workers[key]; exists {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	resolved := m.registry.GetPeerForAddress(p.Addr)

	rawConn, err := m.dialer.Dial(resolved.Addr)
	if err != nil {
		m.log.Warningf("dial %s failed: %v", resolved, err)
		return
	}
	conn := connio.NewTCPConn(rawConn, resolved, m.log)

	worker, err := connworker.New(conn, col.Pieces, col.RequestConsumer, col.BlockConsumer, col.BlockSupplier, m.clock)
	if err != nil {
		m.log.Warningf("worker setup failed for %s: %v", resolved, err)
		conn.Close()
		return
	}

	mw := &managedWorker{conn: conn, worker: worker, stopC: make(chan struct{})}

	m.mu.Lock()
	if _, exists := m.workers[key]; exists {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.workers[key] = mw
	m.mu.Unlock()

	go m.run(key, mw)
}

// workTickInterval paces do_work() polling on an otherwise-idle connection:
// ReadMessageNow and the block supplier are both non-blocking, so without a
// pause between ticks a quiet connection would busy-spin a full core.
const workTickInterval = 10 * time.Millisecond

// statsTickInterval drives the worker's throughput EWMAs, matching the
// reference client's once-a-second metrics tick (session/run.go).
const statsTickInterval = time.Second

// run is the per-worker goroutine driving do_work() repeatedly until it
// fails, matching the reference client's run() loop reacting to a
// connection's disconnect (§4.6). Ticks are paced by workTickInterval and
// the worker's throughput stats are ticked once a second, both scheduled
// off the manager's injected clock so tests can drive them deterministically.
func (m *Manager) run(key string, mw *managedWorker) {
	defer m.teardown(key, mw)

	workTimer := m.clock.Timer(workTickInterval)
	defer workTimer.Stop()
	statsTimer := m.clock.Timer(statsTickInterval)
	defer statsTimer.Stop()

	for {
		select {
		case <-mw.stopC:
			return
		case <-statsTimer.C:
			mw.worker.Stats().Tick()
			statsTimer.Reset(statsTickInterval)
		case <-workTimer.C:
			if err := mw.worker.DoWork(); err != nil {
				m.log.Debugf("connection %s torn down: %v", key, err)
				return
			}
			workTimer.Reset(workTickInterval)
		}
	}
}

func (m *Manager) teardown(key string, mw *managedWorker) {
	mw.conn.Close()
	m.mu.Lock()
	if m.workers[key] == mw {
		delete(m.workers, key)
	}
	m.mu.Unlock()
}

// Close tears down every live worker.
func (m *Manager) Close() {
	m.mu.Lock()
	workers := make([]*managedWorker, 0, len(m.workers))
	for _, mw := range m.workers {
		workers = append(workers, mw)
	}
	m.mu.Unlock()

	for _, mw := range workers {
		close(mw.stopC)
		mw.conn.Close()
	}
}

// Len reports the number of live workers, used by tests and metrics.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}
