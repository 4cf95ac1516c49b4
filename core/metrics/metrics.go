package metrics

import "sync"

// Counter keys emitted by the reporting pipeline.
const (
	// KeyUncapturedEvents counts events dropped because the capture happened
	// inside the ingestion path.
	KeyUncapturedEvents = "internal.uncaptured.events"
	// KeyUncapturedLogs counts log records seen by the record filter.
	KeyUncapturedLogs = "internal.uncaptured.logs"
	KeyStoreAccepted  = "store.events.accepted"
	KeyStoreRejected  = "store.events.rejected"
	KeyUpstreamSent   = "upstream.events.sent"
	KeyUpstreamFailed = "upstream.events.failed"
)

// Keys lists the counter keys emitted by the pipeline itself.
func Keys() []string {
	return []string{
		KeyUncapturedEvents,
		KeyUncapturedLogs,
		KeyStoreAccepted,
		KeyStoreRejected,
		KeyUpstreamSent,
		KeyUpstreamFailed,
	}
}

// MetricsSink records monotonic counters. Implementations must be safe for
// concurrent use; counters are incremented and never read back by callers.
type MetricsSink interface {
	Incr(key string)
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) Incr(string) {}

// MemorySink keeps counters in memory. It is used by tests and by the capture
// command to print a summary.
type MemorySink struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{counters: map[string]int{}}
}

func (m *MemorySink) Incr(key string) {
	m.mu.Lock()
	m.counters[key]++
	m.mu.Unlock()
}

// Count returns the current value of key.
func (m *MemorySink) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// Snapshot returns a copy of all counters.
func (m *MemorySink) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// MultiSink fans counters out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) Incr(key string) {
	for _, s := range m.Sinks {
		s.Incr(key)
	}
}
