// Package connworker implements the Connection Worker (spec §4.5): the
// single-connection BitTorrent peer wire protocol state machine driven by
// repeated, externally-scheduled do_work() calls.
package connworker

import (
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/rainlink/swarmcore/internal/connio"
	"github.com/rainlink/swarmcore/internal/connstate"
	"github.com/rainlink/swarmcore/internal/logger"
	"github.com/rainlink/swarmcore/internal/metrics"
	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/wire"
)

// MaxPendingRequests bounds the request pipeline (spec §3 invariant 2).
//
// The issue loop below tests |pending_requests| <= MaxPendingRequests
// *before* popping and posting one more, so at the boundary condition a
// worker can have up to MaxPendingRequests+1 requests briefly in flight.
// This mirrors the reference client's own off-by-one and is preserved
// deliberately (spec Open Question 2, §8 invariant) rather than fixed.
const MaxPendingRequests = 3

// stallTimeout is how long an empty request_queue with a current piece set
// is tolerated before requests are rebuilt (§4.5.3).
const stallTimeout = 30 * time.Second

// Worker drives one live peer connection. It is not safe for concurrent use:
// the caller (connmanager) must ensure at most one DoWork call is in flight
// at a time, per spec §5's scheduling invariant.
type Worker struct {
	conn          connio.Connection
	state         *connstate.State
	pieces        piecemgr.Manager
	reqConsumer   connio.RequestConsumer
	blockConsumer connio.BlockConsumer
	blockSupplier connio.BlockSupplier
	clock         clock.Clock
	log           logger.Logger
	stats         *metrics.ConnStats

	hasCurrentPiece bool
	currentPiece    uint32

	requestQueue    []wire.Request
	pendingRequests map[wire.RequestKey]struct{}
	pendingWrites   map[wire.RequestKey]piecemgr.BlockWrite
	cancelled       map[wire.RequestKey]struct{}

	lastRequestsBuiltAt time.Time
}

// connAdapter lets a Worker stand in for piecemgr.Conn without exposing its
// own method set (RemoteKey) as part of Worker's public API ambiguously.
type connAdapter struct{ w *Worker }

func (a connAdapter) RemoteKey() string { return a.w.conn.RemotePeer().Key() }

// New constructs a Worker for an already-handshaken Connection. Per §4.5, if
// we already have any local data, our BITFIELD is posted immediately; a
// SendFailure at this point is returned to the caller rather than deferred
// to the first DoWork call.
func New(conn connio.Connection, pieces piecemgr.Manager, reqConsumer connio.RequestConsumer, blockConsumer connio.BlockConsumer, blockSupplier connio.BlockSupplier, clk clock.Clock) (*Worker, error) {
	if clk == nil {
		clk = clock.New()
	}
	w := &Worker{
		conn:            conn,
		state:           connstate.New(),
		pieces:          pieces,
		reqConsumer:     reqConsumer,
		blockConsumer:   blockConsumer,
		blockSupplier:   blockSupplier,
		clock:           clk,
		log:             logger.New("connworker"),
		stats:           metrics.NewConnStats(),
		pendingRequests: make(map[wire.RequestKey]struct{}),
		pendingWrites:   make(map[wire.RequestKey]piecemgr.BlockWrite),
		cancelled:       make(map[wire.RequestKey]struct{}),
	}
	if pieces.HaveAnyData() {
		if err := w.post(wire.Bitfield{Data: pieces.Bitfield()}); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// State exposes the connection's choke/interest flags, e.g. for metrics.
func (w *Worker) State() *connstate.State { return w.state }

// Stats exposes this connection's byte-rate counters.
func (w *Worker) Stats() *metrics.ConnStats { return w.stats }

func (w *Worker) pieceConn() piecemgr.Conn { return connAdapter{w} }

func (w *Worker) post(msg wire.Message) error {
	if err := w.conn.PostMessage(msg); err != nil {
		return ErrSendFailure
	}
	return nil
}

// DoWork advances the protocol by one tick (§4.5.1). Any non-nil error is
// fatal; the caller must tear the connection down.
func (w *Worker) DoWork() error {
	if w.conn.IsClosed() {
		return ErrConnectionClosed
	}
	if err := w.inbound(); err != nil {
		return err
	}
	if err := w.outbound(); err != nil {
		return err
	}
	return nil
}

// inbound implements §4.5.1 step 2 / §4.5.2.
func (w *Worker) inbound() error {
	msg, ok := w.conn.ReadMessageNow()
	if !ok {
		return nil
	}
	switch m := msg.(type) {
	case wire.KeepAlive:
		// nothing
	case wire.Bitfield:
		w.pieces.PeerHasBitfield(w.pieceConn(), m.Data)
	case wire.Choke:
		w.state.SetPeerChoking(true)
	case wire.Unchoke:
		w.state.SetPeerChoking(false)
	case wire.Interested:
		w.state.SetPeerInterested(true)
	case wire.NotInterested:
		w.state.SetPeerInterested(false)
		if err := w.post(wire.Choke{}); err != nil {
			return err
		}
		w.state.SetChoking(true)
	case wire.Have:
		w.pieces.PeerHasPiece(w.pieceConn(), m.Index)
	case wire.Request:
		if !w.state.Choking() {
			w.reqConsumer(m)
		}
	case wire.Cancel:
		w.cancelled[m.KeyOf()] = struct{}{}
	case wire.Piece:
		return w.handlePiece(m)
	case wire.Port:
		// ignore
	default:
		return ErrUnexpectedMessage
	}
	return nil
}

func (w *Worker) handlePiece(m wire.Piece) error {
	key := m.KeyOf(uint32(len(m.Block)))
	if _, found := w.pendingRequests[key]; !found {
		return ErrUnexpectedBlock
	}
	delete(w.pendingRequests, key)
	w.stats.RecordReceived(int64(len(m.Block)))
	w.pendingWrites[key] = w.blockConsumer(m, key.Length)
	return nil
}

// outbound implements §4.5.1 step 3 / §4.5.3.
func (w *Worker) outbound() error {
	if err := w.serveOutboundBlocks(); err != nil {
		return err
	}
	if err := w.advancePieceLifecycle(); err != nil {
		return err
	}
	return w.advanceRequestPipeline()
}

func (w *Worker) serveOutboundBlocks() error {
	for {
		block, ok := w.blockSupplier()
		if !ok {
			return nil
		}
		key := block.Key()
		if _, cancelled := w.cancelled[key]; cancelled {
			delete(w.cancelled, key)
			continue
		}
		if err := w.post(wire.Piece{Index: block.Index, Begin: block.Begin, Block: block.Bytes}); err != nil {
			return err
		}
		w.stats.RecordSent(int64(len(block.Bytes)))
	}
}

func (w *Worker) advancePieceLifecycle() error {
	if len(w.requestQueue) > 0 {
		return nil
	}
	if w.hasCurrentPiece {
		if w.pieces.CheckPieceCompleted(w.currentPiece) {
			w.log.Debugf("piece %d complete", w.currentPiece)
			w.hasCurrentPiece = false
			w.pendingWrites = make(map[wire.RequestKey]piecemgr.BlockWrite)
		}
		return nil
	}

	might := w.pieces.MightSelectPieceForPeer(w.pieceConn())
	switch {
	case might && !w.state.Interested():
		if err := w.post(wire.Interested{}); err != nil {
			return err
		}
		w.state.SetInterested(true)
	case !might && w.state.Interested():
		if err := w.post(wire.NotInterested{}); err != nil {
			return err
		}
		w.state.SetInterested(false)
	}
	return nil
}

func (w *Worker) advanceRequestPipeline() error {
	if w.state.PeerChoking() {
		return nil
	}

	if !w.hasCurrentPiece {
		if idx, ok := w.pieces.SelectPieceForPeer(w.pieceConn()); ok {
			w.hasCurrentPiece = true
			w.currentPiece = idx
			w.requestQueue = append(w.requestQueue, w.pieces.BuildRequestsForPiece(idx)...)
			w.lastRequestsBuiltAt = w.clock.Now()
		}
	} else if len(w.requestQueue) == 0 && w.clock.Now().Sub(w.lastRequestsBuiltAt) >= stallTimeout {
		w.rebuildRequests()
	}

	return w.issueRequests()
}

// rebuildRequests implements the stall-recovery filter of §4.5.3.
func (w *Worker) rebuildRequests() {
	candidates := w.pieces.BuildRequestsForPiece(w.currentPiece)
	var survivors []wire.Request
	for _, req := range candidates {
		key := req.KeyOf()
		if _, inFlight := w.pendingRequests[key]; inFlight {
			continue
		}
		if bw, ok := w.pendingWrites[key]; ok {
			if bw.IsComplete() && !bw.IsSuccess() {
				delete(w.pendingWrites, key)
			} else {
				continue
			}
		}
		survivors = append(survivors, req)
	}
	w.requestQueue = append(w.requestQueue, survivors...)
	w.lastRequestsBuiltAt = w.clock.Now()
}

func (w *Worker) issueRequests() error {
	for len(w.requestQueue) > 0 && len(w.pendingRequests) <= MaxPendingRequests {
		req := w.requestQueue[0]
		w.requestQueue = w.requestQueue[1:]
		key := req.KeyOf()
		if _, inFlight := w.pendingRequests[key]; inFlight {
			continue
		}
		if err := w.post(req); err != nil {
			return err
		}
		w.pendingRequests[key] = struct{}{}
	}
	return nil
}
