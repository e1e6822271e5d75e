package registry

import (
	"time"

	"github.com/rainlink/swarmcore/internal/peersource"
)

// Config is the configuration the registry requires at construction (§6):
// all fields are mandatory. It is deliberately not YAML-serializable — the
// extra peer-source factories are Go values, not on-disk data — unlike the
// root, user-facing Config (see the module root's config.go), which mirrors
// the reference client's split between a loadable Config and in-memory,
// constructed per-torrent options.
type Config struct {
	LocalPeerAddress      string
	LocalPeerPort         uint16
	PeerDiscoveryInterval time.Duration
	TrackerQueryInterval  time.Duration
	ExtraPeerSourceFactories []peersource.Factory
}
