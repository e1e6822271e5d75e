// Package tracker declares the TrackerService and Tracker external
// collaborators the core consumes (spec §6). The actual HTTP/UDP tracker
// wire protocol is out of this module's scope; only the contract the Peer
// Registry and the tracker peer source program against lives here.
package tracker

import (
	"context"
	"errors"
	"net"
)

// AnnounceRequest carries the stats the reference client's own
// internal/tracker.Torrent struct reported to a tracker on each announce,
// adapted here to the shape a Tracker.Announce call needs.
type AnnounceRequest struct {
	InfoHash        [20]byte
	PeerID          [20]byte
	Port            int
	BytesUploaded   int64
	BytesDownloaded int64
	BytesLeft       int64
}

// AnnounceResponse is the subset of a tracker announce reply the Peer Source
// adapter needs: a list of candidate peer addresses.
type AnnounceResponse struct {
	Peers    []*net.TCPAddr
	Interval int // seconds until the tracker would like to be re-queried
}

// Tracker is one resolved tracker client, already bound to a single
// announce URL.
type Tracker interface {
	// URL returns the announce URL this Tracker was constructed for.
	URL() string
	// Announce performs one announce call. It may block on network I/O;
	// callers (the tracker peer source) are responsible for rate limiting.
	Announce(ctx context.Context, req AnnounceRequest) (*AnnounceResponse, error)
}

// Service is the external collaborator that checks protocol support and
// constructs Tracker clients, corresponding to §6's TrackerService.
type Service interface {
	// IsSupportedProtocol reports whether url's scheme is one this service
	// knows how to announce to (e.g. "http", "https", "udp").
	IsSupportedProtocol(url string) bool
	// New constructs a Tracker bound to url. Only called after
	// IsSupportedProtocol(url) returned true.
	New(url string) (Tracker, error)
}

// ErrUnsupportedProtocol is returned (or, per §7, simply causes a silent
// skip) when an announce URL's scheme has no matching Tracker implementation.
var ErrUnsupportedProtocol = errors.New("tracker: unsupported protocol")
