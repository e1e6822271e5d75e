// Package wire supplies the tagged-variant vocabulary of BitTorrent peer
// wire messages that the connection worker dispatches on. Framing and
// serialization onto an actual socket are out of this module's scope (they
// belong to the Connection collaborator, see internal/connio); wire only
// fixes the in-memory shapes the reference client's session package refers
// to as peerprotocol.ChokeMessage, peerprotocol.HaveMessage and so on.
package wire

// Message is the marker interface implemented by every peer protocol
// message. The connection worker dispatches inbound messages with a type
// switch over this interface (see internal/connworker).
type Message interface {
	message()
}

// KeepAlive carries no payload.
type KeepAlive struct{}

// Choke tells the receiver that requests will no longer be served.
type Choke struct{}

// Unchoke tells the receiver that requests will be served again.
type Unchoke struct{}

// Interested announces that the sender wants to download from the receiver.
type Interested struct{}

// NotInterested retracts a previous Interested.
type NotInterested struct{}

// Have announces that the sender now has the piece at Index.
type Have struct {
	Index uint32
}

// Bitfield announces the full set of pieces the sender has.
type Bitfield struct {
	Data []byte
}

// Request asks for a block: Length bytes of piece Index starting at Begin.
type Request struct {
	Index  uint32
	Begin  uint32
	Length uint32
}

// Piece carries a downloaded block.
type Piece struct {
	Index uint32
	Begin uint32
	Block []byte
}

// Cancel retracts a previously sent Request.
type Cancel struct {
	Index  uint32
	Begin  uint32
	Length uint32
}

// Port announces the sender's DHT port. The core ignores it (DHT is a
// Non-goal of the core; it is a concern of an optional peer-source plug-in).
type Port struct {
	Port uint16
}

func (KeepAlive) message()     {}
func (Choke) message()         {}
func (Unchoke) message()       {}
func (Interested) message()    {}
func (NotInterested) message() {}
func (Have) message()          {}
func (Bitfield) message()      {}
func (Request) message()       {}
func (Piece) message()         {}
func (Cancel) message()        {}
func (Port) message()          {}
