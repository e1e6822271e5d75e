package connworker

import (
	"testing"
	"time"

	mockclock "github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/wire"
)

func blockRequests(index uint32) []wire.Request {
	return []wire.Request{
		{Index: index, Begin: 0, Length: 16384},
		{Index: index, Begin: 16384, Length: 16384},
		{Index: index, Begin: 32768, Length: 16384},
		{Index: index, Begin: 49152, Length: 16384},
	}
}

func newTestWorker(t *testing.T, conn *fakeConn, pieces *fakePieces, clk mockclock.Clock) *Worker {
	t.Helper()
	w, err := New(conn, pieces, func(wire.Request) {}, func(p wire.Piece, length uint32) piecemgr.BlockWrite {
		return &fakeBlockWrite{complete: true, success: true}
	}, func() (wire.BlockRead, bool) { return wire.BlockRead{}, false }, clk)
	require.NoError(t, err)
	return w
}

func TestWorkerConnectionClosedIsFatal(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	conn.closed = true
	pieces := newFakePieces()
	w := newTestWorker(t, conn, pieces, nil)

	err := w.DoWork()
	r.ErrorIs(err, ErrConnectionClosed)
}

func TestWorkerPostsBitfieldOnConstructionWhenHaveData(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	pieces := newFakePieces()
	pieces.haveAnyData = true
	pieces.bitfield = []byte{0xff}

	newTestWorker(t, conn, pieces, nil)

	sent := conn.sentMessages()
	r.Len(sent, 1)
	bf, ok := sent[0].(wire.Bitfield)
	r.True(ok)
	r.Equal([]byte{0xff}, bf.Data)
}

func TestWorkerUnexpectedMessageIsFatal(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	pieces := newFakePieces()
	w := newTestWorker(t, conn, pieces, nil)

	conn.pushInbound(unknownMessage{})
	err := w.DoWork()
	r.ErrorIs(err, ErrUnexpectedMessage)
}

type unknownMessage struct{ wire.Message }

func TestWorkerUnexpectedBlockIsFatal(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	pieces := newFakePieces()
	w := newTestWorker(t, conn, pieces, nil)

	conn.pushInbound(wire.Piece{Index: 1, Begin: 0, Block: []byte{1, 2, 3}})
	err := w.DoWork()
	r.ErrorIs(err, ErrUnexpectedBlock)
}

func TestWorkerPieceFlowBuildsAndIssuesRequests(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	pieces := newFakePieces()
	pieces.mightSelect = true
	pieces.hasSelect = true
	pieces.selectPiece = 7
	pieces.requestsFor[7] = blockRequests(7)

	w := newTestWorker(t, conn, pieces, nil)
	conn.pushInbound(wire.Unchoke{})

	r.NoError(w.DoWork())

	sent := conn.sentMessages()
	r.Equal(wire.Interested{}, sent[0])

	var reqs []wire.Request
	for _, m := range sent[1:] {
		reqs = append(reqs, m.(wire.Request))
	}
	// the issue loop's pending_requests <= MAX_PENDING_REQUESTS check is
	// satisfied through the boundary condition noted in the spec: up to
	// MAX_PENDING_REQUESTS+1 requests can be issued for one piece in a
	// single tick.
	r.LessOrEqual(len(reqs), MaxPendingRequests+1)
	r.LessOrEqual(len(w.pendingRequests), MaxPendingRequests+1)

	// Simulate the peer answering the first request.
	first := reqs[0]
	conn.pushInbound(wire.Piece{Index: first.Index, Begin: first.Begin, Block: make([]byte, first.Length)})
	r.NoError(w.DoWork())
	r.Contains(w.pendingWrites, first.KeyOf())
}

func TestWorkerStallRecoveryReissuesFailedWrite(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	pieces := newFakePieces()
	pieces.requestsFor[3] = blockRequests(3)
	clk := mockclock.NewMock()

	w := newTestWorker(t, conn, pieces, clk)
	w.state.SetPeerChoking(false)
	w.hasCurrentPiece = true
	w.currentPiece = 3
	w.lastRequestsBuiltAt = clk.Now()
	w.pendingWrites[wire.RequestKey{Piece: 3, Offset: 0, Length: 16384}] = &fakeBlockWrite{complete: true, success: false}
	w.pendingWrites[wire.RequestKey{Piece: 3, Offset: 16384, Length: 16384}] = &fakeBlockWrite{complete: true, success: true}

	clk.Add(31 * time.Second)
	r.NoError(w.DoWork())

	sentKeys := map[wire.RequestKey]bool{}
	for _, m := range conn.sentMessages() {
		if req, ok := m.(wire.Request); ok {
			sentKeys[req.KeyOf()] = true
		}
	}
	r.True(sentKeys[wire.RequestKey{Piece: 3, Offset: 0, Length: 16384}], "failed write's key must be reissued")
	r.False(sentKeys[wire.RequestKey{Piece: 3, Offset: 16384, Length: 16384}], "successful write's key must not be reissued")
}

func TestWorkerNotInterestedChokesPeer(t *testing.T) {
	r := require.New(t)
	conn := newFakeConn()
	pieces := newFakePieces()
	w := newTestWorker(t, conn, pieces, nil)

	conn.pushInbound(wire.NotInterested{})
	r.NoError(w.DoWork())

	r.False(w.state.PeerInterested())
	r.True(w.state.Choking())
	sent := conn.sentMessages()
	r.Contains(sent, wire.Choke{})
}
