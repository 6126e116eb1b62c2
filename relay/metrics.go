package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	published *prometheus.CounterVec
	bytes     prometheus.Counter
	delivered prometheus.Counter
	polls     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chant",
			Subsystem: "relay",
			Name:      "publish_total",
			Help:      "Publish requests by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chant",
			Subsystem: "relay",
			Name:      "publish_bytes_total",
			Help:      "Envelope bytes accepted.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chant",
			Subsystem: "relay",
			Name:      "delivered_records_total",
			Help:      "Records returned to subscribers.",
		}),
		polls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chant",
			Subsystem: "relay",
			Name:      "waiting_polls",
			Help:      "Long polls currently waiting for a record.",
		}),
	}

	reg.MustRegister(m.published, m.bytes, m.delivered, m.polls)
	return m
}
