// Package metrics provides prometheus counters for booking observability.
// Collectors live on a private registry so tests and the CLI never touch
// the global default registerer.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridebook"

// Counters holds the collectors for one process.
type Counters struct {
	registry *prometheus.Registry

	BookingsCreated       prometheus.Counter
	Transitions           *prometheus.CounterVec // by event_type
	TransitionsRejected   *prometheus.CounterVec // by transition
	IntegrityViolations   prometheus.Counter
	ConsistencyViolations *prometheus.CounterVec // by check
	TxDuration            prometheus.Histogram
}

// New builds a fresh set of counters on its own registry.
func New() *Counters {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Counters{
		registry: reg,
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total bookings created",
		}),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_transitions_total",
				Help:      "Total lifecycle transitions applied",
			},
			[]string{"event_type"},
		),
		TransitionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_transitions_rejected_total",
				Help:      "Total lifecycle transitions refused",
			},
			[]string{"transition"},
		),
		IntegrityViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_violations_total",
			Help:      "Total writes rejected by a storage constraint",
		}),
		ConsistencyViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consistency_violations_total",
				Help:      "Total discrepancies reported by the consistency checker",
			},
			[]string{"check"},
		),
		TxDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_tx_duration_seconds",
			Help:      "Duration of booking write transactions",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
}

// Global is the process-wide metrics singleton.
var Global = New()

// Registry exposes the private registry, e.g. for testutil or an exporter.
func (c *Counters) Registry() *prometheus.Registry {
	return c.registry
}

// Snapshot returns a point-in-time copy of every series as a flat map.
// Labelled series are keyed as name{label="value"}; histograms report
// their sample count.
func (c *Counters) Snapshot() (map[string]float64, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			if pairs := m.GetLabel(); len(pairs) > 0 {
				labels := make([]string, 0, len(pairs))
				for _, lp := range pairs {
					labels = append(labels, lp.GetName()+"=\""+lp.GetValue()+"\"")
				}
				sort.Strings(labels)
				key += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}
