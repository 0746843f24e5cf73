package dedup

import (
	"github.com/prometheus/client_golang/prometheus"

	"example.com/trackersync/internal/domain"
)

var droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tracker_sync",
	Subsystem: "dedup",
	Name:      "items_dropped_total",
	Help:      "Raw items dropped because a snapshot with the same natural key exists.",
}, []string{"category"})

func init() {
	prometheus.MustRegister(droppedCounter)
}

func recordDropped(category domain.Category) {
	droppedCounter.WithLabelValues(string(category)).Inc()
}
