// Package connstate holds the four-flag choke/interest state of one peer
// link (spec §4.4).
package connstate

// State tracks the choke/interest state of one connection. The zero value is
// not the correct initial state — use New.
type State struct {
	choking        bool
	interested     bool
	peerChoking    bool
	peerInterested bool
}

// New returns the BitTorrent-convention initial state: both sides choked and
// not interested.
func New() *State {
	return &State{
		choking:     true,
		peerChoking: true,
	}
}

func (s *State) Choking() bool        { return s.choking }
func (s *State) SetChoking(v bool)    { s.choking = v }
func (s *State) Interested() bool     { return s.interested }
func (s *State) SetInterested(v bool) { s.interested = v }
func (s *State) PeerChoking() bool    { return s.peerChoking }
func (s *State) SetPeerChoking(v bool) {
	s.peerChoking = v
}
func (s *State) PeerInterested() bool     { return s.peerInterested }
func (s *State) SetPeerInterested(v bool) { s.peerInterested = v }
