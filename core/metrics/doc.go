// Package metrics defines the counter sink used by the reporting pipeline.
// The capture client, the log record filter, the store endpoint and the
// upstream forwarder increment named counters on a MetricsSink; concrete
// Prometheus and InfluxDB sinks live in infra/metrics and are selected by
// type through NewMetricsSink. Several configured sinks are combined into a
// MultiSink automatically.
package metrics
