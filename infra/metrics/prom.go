package metrics

import (
	coremetrics "github.com/kilianp07/selfreport/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes pipeline counters as one Prometheus counter labelled by key.
type PromSink struct {
	counters *prometheus.CounterVec
}

// NewPromSink registers the counter on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the counter on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "selfreport",
		Name:      "pipeline_events_total",
		Help:      "Pipeline counters such as dropped internal events and store rejections",
	}, []string{"key"})

	if err := reg.Register(counters); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			counters = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	// Known keys are exported at zero so dashboards see them before the
	// first increment.
	for _, k := range coremetrics.Keys() {
		counters.WithLabelValues(k)
	}
	return &PromSink{counters: counters}, nil
}

// Incr increments the counter labelled key.
func (s *PromSink) Incr(key string) {
	s.counters.WithLabelValues(key).Inc()
}
