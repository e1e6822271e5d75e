// Package torrentstore is a minimal, in-memory TorrentRegistry (spec §6)
// backed by decoded .torrent files, exercising the reference client's own
// zeebo/bencode metainfo parser end to end so the bootstrap command has a
// concrete torrent identity source to hand the Peer Registry.
package torrentstore

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/rainlink/swarmcore/internal/announcekey"
	"github.com/rainlink/swarmcore/internal/metainfo"
	"github.com/rainlink/swarmcore/internal/registry"
)

// Store maps torrent-id (hex-encoded 20-byte infohash) to the decoded
// metainfo it was added from.
type Store struct {
	mu       sync.RWMutex
	torrents map[string]*entry
}

type entry struct {
	info   *metainfo.Info
	key    announcekey.AnnounceKey
	hasKey bool
	active bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{torrents: make(map[string]*entry)}
}

// AddFile decodes the .torrent file at path and registers it as active,
// returning its hex-encoded torrent-id.
func (s *Store) AddFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	mi, err := metainfo.New(f)
	if err != nil {
		return "", fmt.Errorf("torrentstore: decoding %s: %w", path, err)
	}

	id := hex.EncodeToString(mi.Info.Hash[:])
	key, hasKey := announceKeyFor(mi.Announce, mi.AnnounceList)
	s.mu.Lock()
	s.torrents[id] = &entry{info: mi.Info, key: key, hasKey: hasKey, active: true}
	s.mu.Unlock()
	return id, nil
}

// SetActive toggles whether id is considered active by sweepTorrent.
func (s *Store) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.torrents[id]; ok {
		e.active = active
	}
}

// GetDescriptor implements registry.TorrentRegistry.
func (s *Store) GetDescriptor(id string) (registry.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.torrents[id]
	if !ok {
		return registry.Descriptor{}, false
	}
	return registry.Descriptor{IsActive: e.active}, true
}

// GetTorrent implements registry.TorrentRegistry.
func (s *Store) GetTorrent(id string) (registry.Torrent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.torrents[id]
	if !ok {
		return registry.Torrent{}, false
	}
	t := registry.Torrent{
		AnnounceKey:    e.key,
		HasAnnounceKey: e.hasKey,
		IsPrivate:      e.info.IsPrivate(),
	}
	return t, true
}

// announceKeyFor builds a BEP-12 AnnounceKey from a decoded MetaInfo's
// Announce/AnnounceList fields, preferring the tiered list when present.
func announceKeyFor(announce string, announceList [][]string) (announcekey.AnnounceKey, bool) {
	if len(announceList) > 0 {
		return announcekey.Tiered(announceList), true
	}
	if announce != "" {
		return announcekey.Single(announce), true
	}
	return announcekey.AnnounceKey{}, false
}
