package syncer

import (
	"github.com/prometheus/client_golang/prometheus"

	"example.com/trackersync/internal/domain"
)

var (
	runCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Sync runs grouped by outcome kind.",
	}, []string{"outcome"})

	commitFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "engine",
		Name:      "commit_failures_total",
		Help:      "Per-category commit failures that did not abort the run.",
	}, []string{"category"})
)

func init() {
	prometheus.MustRegister(runCounter, commitFailureCounter)
}

func recordRun(outcome string) {
	runCounter.WithLabelValues(outcome).Inc()
}

func recordCommitFailure(category domain.Category) {
	commitFailureCounter.WithLabelValues(string(category)).Inc()
}
