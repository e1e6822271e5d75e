package wire

// RequestKey identifies one in-flight block transfer, the triple the core
// invariants (§3) are stated in terms of.
type RequestKey struct {
	Piece  uint32
	Offset uint32
	Length uint32
}

// KeyOf returns the RequestKey a Request message refers to.
func (r Request) KeyOf() RequestKey {
	return RequestKey{Piece: r.Index, Offset: r.Begin, Length: r.Length}
}

// KeyOf returns the RequestKey a Cancel message refers to.
func (c Cancel) KeyOf() RequestKey {
	return RequestKey{Piece: c.Index, Offset: c.Begin, Length: c.Length}
}

// KeyOf returns the RequestKey a Piece message fulfills. The length isn't
// carried on the wire message itself, so callers that need to match against
// a RequestKey recorded when the request was issued pass it in.
func (p Piece) KeyOf(length uint32) RequestKey {
	return RequestKey{Piece: p.Index, Offset: p.Begin, Length: length}
}
