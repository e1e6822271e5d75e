package wire

// BlockRead is a block of data we owe a peer, ready to be sent as a Piece
// message. Produced by the block-read supplier collaborator (§6 Block I/O).
type BlockRead struct {
	Index  uint32
	Begin  uint32
	Length uint32
	Bytes  []byte
}

// Key returns the RequestKey this block fulfills.
func (b BlockRead) Key() RequestKey {
	return RequestKey{Piece: b.Index, Offset: b.Begin, Length: b.Length}
}
