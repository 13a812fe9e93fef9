package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "slotkeeper"

// Prometheus implements Collector with counter vectors.
type Prometheus struct {
	registrations *prometheus.CounterVec
	allocations   *prometheus.CounterVec
	releases      *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus registers the counters on reg (prometheus.DefaultRegisterer
// if nil) under namespace ("slotkeeper" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	p := &Prometheus{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Client registrations by result.",
		}, []string{"result"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "allocations_total",
			Help:      "Slot allocations by result.",
		}, []string{"result"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "releases_total",
			Help:      "Slot releases by result.",
		}, []string{"result"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cas_conflicts_total",
			Help:      "Compare-and-swap conflicts on ledger rows by operation.",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{p.registrations, p.allocations, p.releases, p.conflicts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordRegistration(result string) {
	p.registrations.WithLabelValues(result).Inc()
}

func (p *Prometheus) RecordAllocation(result string) {
	p.allocations.WithLabelValues(result).Inc()
}

func (p *Prometheus) RecordRelease(result string) {
	p.releases.WithLabelValues(result).Inc()
}

func (p *Prometheus) RecordConflict(op string) {
	p.conflicts.WithLabelValues(op).Inc()
}
