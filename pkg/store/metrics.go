package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBlockSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_store_block_saves_total",
		Help: "Authored blocks written to the store.",
	})
	metricCaptureSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_store_capture_saves_total",
		Help: "Run captures appended to the store.",
	})
	metricActionAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_store_action_appends_total",
		Help: "Action log events appended to the store.",
	})
	metricActionPurges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_store_action_purged_total",
		Help: "Action log events removed by retention.",
	})
)

var _ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
	Name: "fluxplay_store_disk_bytes",
	Help: "Approximate on-disk size of the pebble database.",
}, func() float64 { return float64(OnDiskSize()) })

// OnDiskSize returns the best-effort total size in bytes of the DB
// directory. Zero when the store is not open.
func OnDiskSize() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
