package connworker

import (
	"net"
	"sync"

	"github.com/rainlink/swarmcore/internal/connio"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/wire"
)

// fakeConn is a hand-written Connection fake (the pack's testify is used
// for assertions, not a generated-mock framework — see DESIGN.md). It
// exposes in/out queues a test can push into and inspect directly.
type fakeConn struct {
	mu     sync.Mutex
	inbox  []wire.Message
	outbox []wire.Message
	closed bool
	remote *peer.Peer

	failSend bool
}

func newFakeConn() *fakeConn {
	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 6881}
	return &fakeConn{remote: peer.New(addr, nil, nil)}
}

func (c *fakeConn) pushInbound(msg wire.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, msg)
}

func (c *fakeConn) sentMessages() []wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wire.Message(nil), c.outbox...)
}

func (c *fakeConn) ReadMessageNow() (wire.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil, false
	}
	msg := c.inbox[0]
	c.inbox = c.inbox[1:]
	return msg, true
}

func (c *fakeConn) PostMessage(msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return connio.ErrSendFailed
	}
	c.outbox = append(c.outbox, msg)
	return nil
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) RemotePeer() *peer.Peer { return c.remote }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeBlockWrite is a hand-written piecemgr.BlockWrite fake.
type fakeBlockWrite struct {
	complete bool
	success  bool
}

func (w *fakeBlockWrite) IsComplete() bool { return w.complete }
func (w *fakeBlockWrite) IsSuccess() bool  { return w.success }

// fakePieces is a hand-written piecemgr.Manager fake, configurable per test.
type fakePieces struct {
	mu sync.Mutex

	haveAnyData bool
	bitfield    []byte

	mightSelect  bool
	selectPiece  uint32
	hasSelect    bool
	requestsFor  map[uint32][]wire.Request
	completed    map[uint32]bool

	bitfieldCalls []bitfieldCall
	haveCalls     []uint32
}

type bitfieldCall struct {
	key  string
	data []byte
}

func newFakePieces() *fakePieces {
	return &fakePieces{
		requestsFor: make(map[uint32][]wire.Request),
		completed:   make(map[uint32]bool),
	}
}

func (f *fakePieces) HaveAnyData() bool { return f.haveAnyData }
func (f *fakePieces) Bitfield() []byte  { return f.bitfield }

func (f *fakePieces) PeerHasBitfield(c piecemgr.Conn, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bitfieldCalls = append(f.bitfieldCalls, bitfieldCall{key: c.RemoteKey(), data: data})
}

func (f *fakePieces) PeerHasPiece(c piecemgr.Conn, index uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.haveCalls = append(f.haveCalls, index)
}

func (f *fakePieces) MightSelectPieceForPeer(c piecemgr.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mightSelect
}

func (f *fakePieces) SelectPieceForPeer(c piecemgr.Conn) (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasSelect {
		return 0, false
	}
	f.hasSelect = false
	return f.selectPiece, true
}

func (f *fakePieces) BuildRequestsForPiece(index uint32) []wire.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wire.Request(nil), f.requestsFor[index]...)
}

func (f *fakePieces) CheckPieceCompleted(index uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed[index]
}
