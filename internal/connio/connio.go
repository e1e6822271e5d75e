// Package connio declares the Connection and Block I/O external
// collaborators of spec §6. Socket I/O and message framing are out of this
// module's scope; only the non-blocking contract the connection worker
// drives against lives here, plus one concrete, minimally-framed
// implementation (tcpconn.go) so the worker can be exercised end to end.
package connio

import (
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/wire"
)

// Connection is one live peer link, already past handshake.
type Connection interface {
	// ReadMessageNow returns the next framed message if one is already
	// buffered, without blocking. ok is false if nothing is available.
	ReadMessageNow() (msg wire.Message, ok bool)
	// PostMessage buffers msg for sending. It returns an error only if the
	// connection has failed outright (see ErrSendFailed).
	PostMessage(msg wire.Message) error
	// IsClosed reports whether the underlying link has been torn down.
	IsClosed() bool
	// RemotePeer returns the identity of the peer at the other end.
	RemotePeer() *peer.Peer
	// Close tears the connection down.
	Close() error
}

// RequestConsumer is handed inbound Request messages we are willing to
// serve (we are not choking the peer).
type RequestConsumer func(req wire.Request)

// BlockConsumer is handed a received block (a wire.Piece plus the length we
// expected, so it can be matched back to the RequestKey we issued) and
// returns a handle to the in-progress write.
type BlockConsumer func(p wire.Piece, length uint32) piecemgr.BlockWrite

// BlockSupplier is polled for blocks we owe a peer that have become ready to
// send. ok is false when nothing is currently available.
type BlockSupplier func() (block wire.BlockRead, ok bool)
