// Package metrics provides the small set of counters and EWMA rates the
// registry and connection worker report, built on
// github.com/rcrowley/go-metrics exactly as the reference client tracks its
// per-torrent downloadSpeed/uploadSpeed EWMAs.
package metrics

import gometrics "github.com/rcrowley/go-metrics"

// ConnStats are the per-connection counters a Worker updates as it sends
// and receives bytes, mirroring torrent.downloadSpeed/uploadSpeed.
type ConnStats struct {
	BytesReceived gometrics.Counter
	BytesSent     gometrics.Counter
	DownloadSpeed gometrics.EWMA
	UploadSpeed   gometrics.EWMA
}

// NewConnStats constructs a fresh, unregistered set of connection counters.
func NewConnStats() *ConnStats {
	return &ConnStats{
		BytesReceived: gometrics.NewCounter(),
		BytesSent:     gometrics.NewCounter(),
		DownloadSpeed: gometrics.NewEWMA1(),
		UploadSpeed:   gometrics.NewEWMA1(),
	}
}

// RecordReceived accounts for n bytes read off the wire.
func (c *ConnStats) RecordReceived(n int64) {
	c.BytesReceived.Inc(n)
	c.DownloadSpeed.Update(n)
}

// RecordSent accounts for n bytes written to the wire.
func (c *ConnStats) RecordSent(n int64) {
	c.BytesSent.Inc(n)
	c.UploadSpeed.Update(n)
}

// Tick advances the EWMAs; callers invoke this once per second, matching
// the reference client's torrent-level speed-tick timer.
func (c *ConnStats) Tick() {
	c.DownloadSpeed.Tick()
	c.UploadSpeed.Tick()
}

// RegistryStats are the discovery-sweep counters the Peer Registry reports.
type RegistryStats struct {
	SweepDuration   gometrics.Timer
	PeersDiscovered gometrics.Counter
}

// NewRegistryStats constructs a fresh, unregistered set of registry counters.
func NewRegistryStats() *RegistryStats {
	return &RegistryStats{
		SweepDuration:   gometrics.NewTimer(),
		PeersDiscovered: gometrics.NewCounter(),
	}
}
