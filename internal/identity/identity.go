// Package identity provides the IdentityService collaborator (spec §6): a
// client-wide, randomly generated 20-byte BEP-20 peer-id.
package identity

import "crypto/rand"

const prefix = "-RS0001-"

// Service is a fixed IdentityService generated once at construction.
type Service struct {
	id [20]byte
}

// New generates a fresh peer-id: BEP-20's "-<client><version>-" prefix
// followed by random bytes. There is no library in the reference stack for
// this — it is a single crypto/rand.Read call, not a concern any pack
// dependency covers (see DESIGN.md).
func New() (*Service, error) {
	var id [20]byte
	copy(id[:], prefix)
	if _, err := rand.Read(id[len(prefix):]); err != nil {
		return nil, err
	}
	return &Service{id: id}, nil
}

// LocalPeerID implements registry.IdentityService.
func (s *Service) LocalPeerID() [20]byte { return s.id }
