// Package trackerhttp is a minimal BEP-3 HTTP tracker client, adapted from
// the reference announce-client idiom (GET with url.Values, bencode-decoded
// response) so cmd/rainswarmd has a real tracker.Service to construct the
// Peer Registry with. Tracker wire clients are an out-of-scope external
// collaborator per the core spec (§1); this lives outside internal/tracker
// for that reason and is consumed only by the bootstrap command.
package trackerhttp

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/bencode"

	"github.com/rainlink/swarmcore/internal/tracker"
)

// Service constructs trackerhttp.Tracker clients for http(s):// URLs.
type Service struct {
	Client *http.Client
}

// NewService returns a Service using a sane default HTTP client timeout.
func NewService() *Service {
	return &Service{Client: &http.Client{Timeout: 30 * time.Second}}
}

// IsSupportedProtocol implements tracker.Service.
func (s *Service) IsSupportedProtocol(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// New implements tracker.Service.
func (s *Service) New(rawURL string) (tracker.Tracker, error) {
	if !s.IsSupportedProtocol(rawURL) {
		return nil, tracker.ErrUnsupportedProtocol
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Tracker{url: u, client: client}, nil
}

// Tracker is one BEP-3 HTTP tracker endpoint.
type Tracker struct {
	url    *url.URL
	client *http.Client
}

// URL implements tracker.Tracker.
func (t *Tracker) URL() string { return t.url.String() }

// Announce implements tracker.Tracker, issuing a GET request with the
// standard BEP-3 query parameters and decoding a compact peer response.
func (t *Tracker) Announce(ctx context.Context, req tracker.AnnounceRequest) (*tracker.AnnounceResponse, error) {
	v := url.Values{}
	v.Set("info_hash", string(req.InfoHash[:]))
	v.Set("peer_id", string(req.PeerID[:]))
	v.Set("port", strconv.Itoa(req.Port))
	v.Set("uploaded", strconv.FormatInt(req.BytesUploaded, 10))
	v.Set("downloaded", strconv.FormatInt(req.BytesDownloaded, 10))
	v.Set("left", strconv.FormatInt(req.BytesLeft, 10))
	v.Set("compact", "1")

	full := fmt.Sprintf("%s?%s", t.url.String(), v.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		FailureReason string             `bencode:"failure reason"`
		Interval      int                `bencode:"interval"`
		Peers         bencode.RawMessage `bencode:"peers"`
	}
	if err := bencode.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("trackerhttp: decoding response: %w", err)
	}
	if body.FailureReason != "" {
		return nil, fmt.Errorf("trackerhttp: tracker failure: %s", body.FailureReason)
	}

	peers, err := decodeCompactPeers([]byte(body.Peers))
	if err != nil {
		return nil, err
	}
	return &tracker.AnnounceResponse{Peers: peers, Interval: body.Interval}, nil
}

// decodeCompactPeers parses a BEP-23 compact peer list: a bencoded byte
// string, 6 bytes per peer (4-byte IPv4 + 2-byte big-endian port). The raw
// field comes in as a bencoded string, so the leading length prefix and
// colon (e.g. "18:...") must be stripped first.
func decodeCompactPeers(raw []byte) ([]*net.TCPAddr, error) {
	idx := -1
	for i, b := range raw {
		if b == ':' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}
	data := raw[idx+1:]
	if len(data)%6 != 0 {
		return nil, fmt.Errorf("trackerhttp: malformed compact peer list (%d bytes)", len(data))
	}
	peers := make([]*net.TCPAddr, 0, len(data)/6)
	for i := 0; i+6 <= len(data); i += 6 {
		ip := net.IPv4(data[i], data[i+1], data[i+2], data[i+3])
		port := binary.BigEndian.Uint16(data[i+4 : i+6])
		peers = append(peers, &net.TCPAddr{IP: ip, Port: int(port)})
	}
	return peers, nil
}
