// Command rainswarmd is the bootstrap process entry point (spec §4.7): it
// loads configuration, constructs the Peer Cache, Peer Registry and
// Connection Manager, adds any .torrent files given on the command line,
// and runs until interrupted — mirroring the reference client's own
// Session.New/Session.Close pairing.
package main

import (
	"encoding/hex"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	rain "github.com/rainlink/swarmcore"
	"github.com/rainlink/swarmcore/internal/connmanager"
	"github.com/rainlink/swarmcore/internal/identity"
	"github.com/rainlink/swarmcore/internal/logger"
	"github.com/rainlink/swarmcore/internal/peercache"
	"github.com/rainlink/swarmcore/internal/peersource"
	"github.com/rainlink/swarmcore/internal/piecemgr"
	"github.com/rainlink/swarmcore/internal/registry"
	"github.com/rainlink/swarmcore/internal/torrentstore"
	"github.com/rainlink/swarmcore/internal/tracker"
	"github.com/rainlink/swarmcore/internal/trackerhttp"
	"github.com/rainlink/swarmcore/internal/wire"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	log := logger.New("main")

	cfg := rain.DefaultConfig
	if *configPath != "" {
		loaded, err := rain.LoadConfig(*configPath)
		if err != nil {
			log.Errorf("loading config: %v", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	id, err := identity.New()
	if err != nil {
		log.Errorf("generating peer-id: %v", err)
		os.Exit(1)
	}

	store := torrentstore.New()

	cache := peercache.New()

	trackerSvc := trackerhttp.NewService()
	trackerFactory := peersource.NewTrackerSourceFactory(trackerSvc, cfg.Discovery.TrackerQueryInterval, statsProvider(id, cfg.Port), nil)

	regCfg := registry.Config{
		LocalPeerAddress:      "0.0.0.0",
		LocalPeerPort:         cfg.Port,
		PeerDiscoveryInterval: cfg.Discovery.PeerDiscoveryInterval,
		TrackerQueryInterval:  cfg.Discovery.TrackerQueryInterval,
	}
	reg := registry.New(regCfg, cache, store, trackerFactory, id, nil)

	connMgr := connmanager.New(reg, connmanager.DialerFunc(dialTCP), nil)

	for _, path := range flag.Args() {
		torrentID, err := store.AddFile(path)
		if err != nil {
			log.Errorf("adding %s: %v", path, err)
			continue
		}
		log.Infof("added torrent %s from %s", torrentID, path)

		// Serve subscribes the connection manager to this torrent's peer
		// discovery; without it the registry's sweep gate (no subscribers,
		// no query) would leave the torrent inert. The PieceManager given
		// here is a null stub: real piece-picking is an external
		// collaborator out of this module's scope (§1/§6).
		connMgr.Serve(torrentID, connmanager.Collaborators{
			Pieces:          torrentstore.NullPieceManager{},
			RequestConsumer: func(wire.Request) {},
			BlockConsumer:   func(wire.Piece, uint32) piecemgr.BlockWrite { return nil },
			BlockSupplier:   func() (wire.BlockRead, bool) { return wire.BlockRead{}, false },
		})
	}

	reg.Start()
	log.Infof("rainswarmd listening on port %d, peer-id %x", cfg.Port, mustID(id))

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	<-sigC

	log.Infoln("shutting down")
	connMgr.Close()
	reg.Stop()
}

func dialTCP(addr net.Addr) (net.Conn, error) {
	return net.Dial("tcp", addr.String())
}

// statsProvider returns a peersource.StatsProvider that announces every
// torrent with zero bytes uploaded, downloaded and left; it reports no real
// progress. Real progress accounting lives in the
// PieceManager/on-disk store, both external collaborators out of this
// module's scope (§1); this is a placeholder sufficient to exercise the
// tracker announce path end to end.
func statsProvider(id *identity.Service, port uint16) peersource.StatsProvider {
	return func(torrentID string) tracker.AnnounceRequest {
		var infoHash [20]byte
		if b, err := hex.DecodeString(torrentID); err == nil {
			copy(infoHash[:], b)
		}
		return tracker.AnnounceRequest{
			InfoHash: infoHash,
			PeerID:   id.LocalPeerID(),
			Port:     int(port),
		}
	}
}

func mustID(id *identity.Service) [20]byte {
	return id.LocalPeerID()
}
