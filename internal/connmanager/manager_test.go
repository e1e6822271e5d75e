package connmanager

import (
	"net"
	"testing"
	"time"

	mockclock "github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/registry"

	"github.com/rainlink/swarmcore/internal/connio"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/wire"
)

// fakeRegistry is a hand-written Registry fake recording subscriptions and
// letting the test fire a discovered-peer callback synchronously.
type fakeRegistry struct {
	local     *peer.Peer
	consumers map[string]registry.PeerConsumer
}

func newFakeRegistry() *fakeRegistry {
	addr := &net.TCPAddr{IP: net.IPv4zero, Port: 6881}
	return &fakeRegistry{
		local:     peer.New(addr, nil, nil),
		consumers: make(map[string]registry.PeerConsumer),
	}
}

func (f *fakeRegistry) LocalPeer() *peer.Peer { return f.local }

func (f *fakeRegistry) GetPeerForAddress(addr net.Addr) *peer.Peer {
	return peer.New(addr, nil, nil)
}

func (f *fakeRegistry) AddPeerConsumer(torrentID string, cb registry.PeerConsumer) {
	f.consumers[torrentID] = cb
}

func (f *fakeRegistry) discover(torrentID string, p *peer.Peer) {
	f.consumers[torrentID](p)
}

// fakePieces is the minimal piecemgr.Manager a manager test needs: a
// connection worker that never has any data or work to do.
type fakePieces struct{}

func (fakePieces) HaveAnyData() bool                                 { return false }
func (fakePieces) Bitfield() []byte                                  { return nil }
func (fakePieces) PeerHasBitfield(c piecemgr.Conn, data []byte)      {}
func (fakePieces) PeerHasPiece(c piecemgr.Conn, index uint32)        {}
func (fakePieces) MightSelectPieceForPeer(c piecemgr.Conn) bool      { return false }
func (fakePieces) SelectPieceForPeer(c piecemgr.Conn) (uint32, bool) { return 0, false }
func (fakePieces) BuildRequestsForPiece(index uint32) []wire.Request { return nil }
func (fakePieces) CheckPieceCompleted(index uint32) bool             { return false }

func TestManagerDialsAndRegistersWorkerOnDiscovery(t *testing.T) {
	r := require.New(t)
	reg := newFakeRegistry()

	clientEnd, serverEnd := net.Pipe()
	defer serverEnd.Close()

	dialer := DialerFunc(func(addr net.Addr) (net.Conn, error) { return clientEnd, nil })
	mgr := New(reg, dialer, nil)

	mgr.Serve("t1", Collaborators{
		Pieces:          fakePieces{},
		RequestConsumer: func(wire.Request) {},
		BlockConsumer:   func(p wire.Piece, length uint32) piecemgr.BlockWrite { return nil },
		BlockSupplier:   func() (wire.BlockRead, bool) { return wire.BlockRead{}, false },
	})

	addr := &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 6881}
	reg.discover("t1", peer.New(addr, nil, nil))

	require.Eventually(t, func() bool { return mgr.Len() == 1 }, time.Second, 5*time.Millisecond)

	mgr.Close()
	require.Eventually(t, func() bool { return mgr.Len() == 0 }, time.Second, 5*time.Millisecond)
	r.NotNil(connio.ErrSendFailed, "sanity: connio package reachable from this test")
}

// TestManagerPacesWorkAndStatsOffTheClock drives the per-worker loop with a
// mock clock and checks that the worker stays registered both before any
// tick is delivered and after work and stats ticks are delivered. It does
// not count DoWork calls or inspect the stats values.
func TestManagerPacesWorkAndStatsOffTheClock(t *testing.T) {
	r := require.New(t)
	reg := newFakeRegistry()

	clientEnd, serverEnd := net.Pipe()
	defer serverEnd.Close()

	dialer := DialerFunc(func(addr net.Addr) (net.Conn, error) { return clientEnd, nil })
	clk := mockclock.NewMock()
	mgr := New(reg, dialer, clk)

	mgr.Serve("t1", Collaborators{
		Pieces:          fakePieces{},
		RequestConsumer: func(wire.Request) {},
		BlockConsumer:   func(p wire.Piece, length uint32) piecemgr.BlockWrite { return nil },
		BlockSupplier:   func() (wire.BlockRead, bool) { return wire.BlockRead{}, false },
	})

	addr := &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 6881}
	reg.discover("t1", peer.New(addr, nil, nil))
	require.Eventually(t, func() bool { return mgr.Len() == 1 }, time.Second, 5*time.Millisecond)

	// No ticks delivered yet: the worker must still be alive.
	r.Equal(1, mgr.Len())

	for i := 0; i < 5; i++ {
		clk.Add(workTickInterval)
	}
	clk.Add(statsTickInterval)

	require.Eventually(t, func() bool { return mgr.Len() == 1 }, time.Second, 5*time.Millisecond)

	mgr.Close()
	require.Eventually(t, func() bool { return mgr.Len() == 0 }, time.Second, 5*time.Millisecond)
}
