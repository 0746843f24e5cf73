package events

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Events written to Kafka per topic.",
	}, []string{"topic"})

	publishErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_sync",
		Subsystem: "events",
		Name:      "publish_errors_total",
		Help:      "Failed Kafka writes per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(publishedCounter, publishErrorCounter)
}

func recordPublished(topic string, n int) {
	publishedCounter.WithLabelValues(topic).Add(float64(n))
}

func recordPublishError(topic string) {
	publishErrorCounter.WithLabelValues(topic).Inc()
}
