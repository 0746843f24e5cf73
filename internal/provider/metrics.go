package provider

import (
	"github.com/prometheus/client_golang/prometheus"

	"example.com/trackersync/internal/domain"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Provider fetches grouped by category and outcome.",
	}, []string{"category", "outcome"})

	refreshCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "provider",
		Name:      "token_refreshes_total",
		Help:      "Number of OAuth refresh calls issued against the provider.",
	})
)

func init() {
	prometheus.MustRegister(requestCounter, refreshCounter)
}

func recordRequest(category domain.Category, outcome string) {
	requestCounter.WithLabelValues(string(category), outcome).Inc()
}

func recordRefresh() {
	refreshCounter.Inc()
}
