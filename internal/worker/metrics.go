package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"example.com/trackersync/internal/domain"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Number of sync jobs successfully handled.",
	}, []string{"topic"})

	runErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "worker",
		Name:      "run_errors_total",
		Help:      "Number of failed sync runs grouped by topic and error kind.",
	}, []string{"topic", "kind"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "worker",
		Name:      "decode_errors_total",
		Help:      "Number of job decode failures per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, runErrorCounter, decodeErrorCounter)
}

func recordProcessed(topic string) {
	processedCounter.WithLabelValues(topic).Inc()
}

func recordRunError(topic string, err error) {
	kind := "error"
	if k, ok := domain.KindOf(err); ok {
		kind = string(k)
	}
	runErrorCounter.WithLabelValues(topic, kind).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
