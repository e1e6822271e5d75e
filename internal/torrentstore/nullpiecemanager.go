package torrentstore

import (
	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/wire"
)

// NullPieceManager is a stand-in piecemgr.Manager that has no data and never
// selects a piece from any peer. The real PieceManager (piece-picking
// strategy, on-disk store, hash verification) is an external collaborator
// out of this module's scope (spec §1/§6); this stub exists only so the
// bootstrap command can hand the Connection Manager something real enough
// to drive a live peer-wire connection end to end.
type NullPieceManager struct{}

func (NullPieceManager) HaveAnyData() bool                           { return false }
func (NullPieceManager) Bitfield() []byte                            { return nil }
func (NullPieceManager) PeerHasBitfield(c piecemgr.Conn, data []byte) {}
func (NullPieceManager) PeerHasPiece(c piecemgr.Conn, index uint32)   {}
func (NullPieceManager) MightSelectPieceForPeer(c piecemgr.Conn) bool { return false }
func (NullPieceManager) SelectPieceForPeer(c piecemgr.Conn) (uint32, bool) {
	return 0, false
}
func (NullPieceManager) BuildRequestsForPiece(index uint32) []wire.Request { return nil }
func (NullPieceManager) CheckPieceCompleted(index uint32) bool             { return false }
