// Package observability holds cross-package gauges for sync progress.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncCompletedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracker_sync",
		Subsystem: "engine",
		Name:      "last_run_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully completed sync run.",
	})
	watermarkGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracker_sync",
		Subsystem: "engine",
		Name:      "last_watermark_advanced_timestamp_seconds",
		Help:      "Unix timestamp of the most recent watermark advancement.",
	})
)

func init() {
	prometheus.MustRegister(syncCompletedGauge, watermarkGauge)
}

// RecordSyncCompleted updates the run completion gauge.
func RecordSyncCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	syncCompletedGauge.Set(float64(ts.Unix()))
}

// RecordWatermarkAdvanced updates the watermark gauge.
func RecordWatermarkAdvanced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	watermarkGauge.Set(float64(ts.Unix()))
}
