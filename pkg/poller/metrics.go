package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "filling_machine"
	subsystem = "poller"
)

type Metrics struct {
	polls        *prometheus.CounterVec
	readErrors   *prometheus.CounterVec
	connected    *prometheus.GaugeVec
	pollDuration *prometheus.HistogramVec
}

// NewMetrics registers the poller collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		polls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "polls_total",
				Help:      "Completed polls by machine and tracker outcome",
			},
			[]string{"machine_id", "outcome"},
		),
		readErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "read_errors_total",
				Help:      "Failed register reads by machine",
			},
			[]string{"machine_id"},
		),
		connected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "machine_connected",
				Help:      "Machine connectivity (0=disconnected, 1=connected)",
			},
			[]string{"machine_id"},
		),
		pollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "poll_duration_seconds",
				Help:      "Duration of one read and track cycle in seconds",
			},
			[]string{"machine_id"},
		),
	}
}
