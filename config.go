package rain

import (
	"io/ioutil"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v1"
)

// Config is the on-disk, YAML-serializable configuration loaded at process
// boot. It is deliberately distinct from registry.Config: that one carries
// in-memory-only values (extra peer-source factories) that cannot be
// expressed as YAML, mirroring the reference client's split between its
// loadable Config and its per-torrent, constructed options.
type Config struct {
	Port uint16

	PeerID struct {
		// Directory for peer identity state; ExpandStateDir resolves a
		// leading "~" in it. Nothing in this module stores a peer-id
		// there: identity.New generates a fresh peer-id on every run.
		StateDir string `yaml:"state_dir"`
	} `yaml:"peer_id"`

	Discovery struct {
		PeerDiscoveryInterval time.Duration `yaml:"peer_discovery_interval"`
		TrackerQueryInterval  time.Duration `yaml:"tracker_query_interval"`
	} `yaml:"discovery"`
}

// DefaultConfig matches the reference client's own defaults, extended with
// the discovery intervals the registry requires at construction (§6).
var DefaultConfig = Config{
	Port: 6881,
	Discovery: struct {
		PeerDiscoveryInterval time.Duration `yaml:"peer_discovery_interval"`
		TrackerQueryInterval  time.Duration `yaml:"tracker_query_interval"`
	}{
		PeerDiscoveryInterval: 30 * time.Second,
		TrackerQueryInterval:  30 * time.Minute,
	},
}

// LoadConfig reads and parses a YAML config file, falling back to
// DefaultConfig if the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig
	b, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ExpandStateDir resolves a leading "~" in PeerID.StateDir against the
// user's home directory, matching the reference client's own path-expansion
// helper pattern (go-homedir, already in this pack's dependency closure).
func (c *Config) ExpandStateDir() (string, error) {
	if c.PeerID.StateDir == "" {
		return "", nil
	}
	return homedir.Expand(c.PeerID.StateDir)
}
