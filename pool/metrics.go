package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Acquisition outcomes, the values of the result label.
const (
	resultReused    = "reused"
	resultCreated   = "created"
	resultResized   = "resized"
	resultTimeout   = "timeout"
	resultCancelled = "cancelled"
	resultError     = "error"
)

type metrics struct {
	acquisitions *prometheus.CounterVec
	releases     prometheus.Counter
	acquireWait  prometheus.Histogram
	terminals    *prometheus.GaugeVec
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		acquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tuitest",
				Subsystem: "pool",
				Name:      "acquisitions_total",
				Help:      "Total number of terminal acquisitions, by result",
			},
			[]string{"result"},
		),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tuitest",
			Subsystem: "pool",
			Name:      "releases_total",
			Help:      "Total number of terminals released back to the pool",
		}),
		acquireWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tuitest",
			Subsystem: "pool",
			Name:      "acquire_wait_seconds",
			Help:      "Time spent waiting in Acquire",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}),
		terminals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "tuitest",
				Subsystem: "pool",
				Name:      "terminals",
				Help:      "Number of pooled terminals, by state",
			},
			[]string{"state"},
		),
	}
	if r != nil {
		for _, c := range []prometheus.Collector{m.acquisitions, m.releases, m.acquireWait, m.terminals} {
			if err := r.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *metrics) setTerminals(inUse, available int) {
	m.terminals.WithLabelValues("in_use").Set(float64(inUse))
	m.terminals.WithLabelValues("available").Set(float64(available))
}
