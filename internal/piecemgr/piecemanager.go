// Package piecemgr declares the PieceManager external collaborator (spec
// §6). Piece selection strategy, the piece/bitfield bookkeeping and the
// on-disk store all live behind this interface; the connection worker only
// ever asks it questions and hands it data.
package piecemgr

import "github.com/rainlink/swarmcore/internal/wire"

// Conn identifies, to the PieceManager, which connection a question is being
// asked on behalf of. The connection worker passes itself (or a handle to
// itself) so the PieceManager can track per-connection piece-picking state
// (e.g. which pieces a given peer is known to have) without the worker
// needing to know anything about that bookkeeping.
type Conn interface {
	// RemoteKey is a stable identifier for the remote endpoint, letting a
	// PieceManager implementation key its own per-peer maps.
	RemoteKey() string
}

// BlockWrite is a handle to an in-progress (or finished) write of a received
// block to the on-disk store.
type BlockWrite interface {
	// IsComplete reports whether the write has finished (successfully or not).
	IsComplete() bool
	// IsSuccess reports whether a completed write succeeded. Undefined while
	// IsComplete is false.
	IsSuccess() bool
}

// Manager is the PieceManager contract of §6.
type Manager interface {
	// HaveAnyData reports whether we have any piece at all, used to decide
	// whether to announce a bitfield on connection construction.
	HaveAnyData() bool
	// Bitfield returns our current bitfield, serialized.
	Bitfield() []byte
	// PeerHasBitfield records a peer's full bitfield, received via a
	// wire.Bitfield message.
	PeerHasBitfield(c Conn, data []byte)
	// PeerHasPiece records a single Have announcement from a peer.
	PeerHasPiece(c Conn, index uint32)
	// MightSelectPieceForPeer reports whether SelectPieceForPeer could
	// plausibly return a piece for c right now, without committing to one.
	// Used to decide whether to declare interest.
	MightSelectPieceForPeer(c Conn) bool
	// SelectPieceForPeer picks the next piece to download from c, if any.
	SelectPieceForPeer(c Conn) (index uint32, ok bool)
	// BuildRequestsForPiece splits a piece into the block requests needed to
	// fetch it in full.
	BuildRequestsForPiece(index uint32) []wire.Request
	// CheckPieceCompleted reports whether index has been fully received and
	// written (and, typically, hash-verified) since it was selected.
	CheckPieceCompleted(index uint32) bool
}
