package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ccrnode"

// Metrics counts the messages going through a broker.
type Metrics struct {
	published    *prometheus.CounterVec
	acked        *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	redelivered  *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them if reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Messages published, by queue.",
		}, []string{"queue"}),
		acked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_acked_total",
			Help:      "Messages processed successfully, by queue.",
		}, []string{"queue"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Messages whose processing failed, by queue and error kind.",
		}, []string{"queue", "kind"}),
		redelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_redelivered_total",
			Help:      "Messages put back in their queue after a failure, by queue.",
		}, []string{"queue"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dead_lettered_total",
			Help:      "Messages routed to the dead letter queue, by queue and error kind.",
		}, []string{"queue", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.published, m.acked, m.rejected, m.redelivered, m.deadLettered)
	}
	return m
}
