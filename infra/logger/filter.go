package logger

import (
	"context"

	"github.com/kilianp07/selfreport/core/guard"
	"github.com/kilianp07/selfreport/core/metrics"
)

// RecordFilter decides whether a log record may enter the reporting pipeline.
type RecordFilter struct {
	guard guard.Guard
	sink  metrics.MetricsSink
}

// NewRecordFilter returns a filter backed by g. A nil guard admits every
// record and a nil sink discards the counter.
func NewRecordFilter(g guard.Guard, sink metrics.MetricsSink) *RecordFilter {
	if g == nil {
		g = guard.Always
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &RecordFilter{guard: g, sink: sink}
}

// Filter counts the record under metrics.KeyUncapturedLogs, then reports
// whether the guard considers ctx safe. The counter is incremented for
// admitted records too.
func (f *RecordFilter) Filter(ctx context.Context) bool {
	f.sink.Incr(metrics.KeyUncapturedLogs)
	return f.guard.IsCurrentEventSafe(ctx)
}
